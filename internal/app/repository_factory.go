package app

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	identityDomain "github.com/sendflowr/pulse/internal/identity/domain"
	identityPersistence "github.com/sendflowr/pulse/internal/identity/infrastructure/persistence"
	"github.com/sendflowr/pulse/internal/simulation"
	timingDomain "github.com/sendflowr/pulse/internal/timing/domain"
	timingPersistence "github.com/sendflowr/pulse/internal/timing/infrastructure/persistence"
)

// RepositoryFactory creates repositories for the configured storage
// driver: PostgreSQL in service mode, SQLite in local mode.
type RepositoryFactory struct {
	pool     *pgxpool.Pool
	sqliteDB *sql.DB
}

// NewPostgresFactory creates a factory backed by a PostgreSQL pool.
func NewPostgresFactory(pool *pgxpool.Pool) *RepositoryFactory {
	return &RepositoryFactory{pool: pool}
}

// NewSQLiteFactory creates a factory backed by a local SQLite file.
func NewSQLiteFactory(dbConn *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{sqliteDB: dbConn}
}

// EventRepository creates the engagement event repository.
func (f *RepositoryFactory) EventRepository() (timingDomain.EventRepository, error) {
	switch {
	case f.pool != nil:
		return timingPersistence.NewPostgresEventRepository(f.pool), nil
	case f.sqliteDB != nil:
		return timingPersistence.NewSQLiteEventRepository(f.sqliteDB)
	default:
		return nil, fmt.Errorf("no storage driver configured")
	}
}

// IdentityRepository creates the identity graph repository.
func (f *RepositoryFactory) IdentityRepository() (identityDomain.Repository, error) {
	switch {
	case f.pool != nil:
		return identityPersistence.NewPostgresIdentityRepository(f.pool), nil
	case f.sqliteDB != nil:
		return identityPersistence.NewSQLiteIdentityRepository(f.sqliteDB)
	default:
		return nil, fmt.Errorf("no storage driver configured")
	}
}

// EventWriter creates the simulation event loader.
func (f *RepositoryFactory) EventWriter() (simulation.EventWriter, error) {
	switch {
	case f.pool != nil:
		return simulation.NewPostgresEventWriter(f.pool), nil
	case f.sqliteDB != nil:
		return simulation.NewSQLiteEventWriter(f.sqliteDB), nil
	default:
		return nil, fmt.Errorf("no storage driver configured")
	}
}
