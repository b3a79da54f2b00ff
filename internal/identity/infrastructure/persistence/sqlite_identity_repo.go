package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/sendflowr/pulse/internal/identity/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS identity_mappings (
	kind         TEXT NOT NULL,
	value        TEXT NOT NULL,
	universal_id TEXT NOT NULL,
	confidence   REAL NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (kind, value)
);
CREATE INDEX IF NOT EXISTS idx_identity_mappings_universal ON identity_mappings(universal_id);

CREATE TABLE IF NOT EXISTS identity_edges (
	a_kind     TEXT NOT NULL,
	a_value    TEXT NOT NULL,
	b_kind     TEXT NOT NULL,
	b_value    TEXT NOT NULL,
	weight     REAL NOT NULL,
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (a_kind, a_value, b_kind, b_value)
);

CREATE TABLE IF NOT EXISTS resolution_steps (
	resolution_id TEXT NOT NULL,
	universal_id  TEXT NOT NULL,
	kind          TEXT NOT NULL,
	value         TEXT NOT NULL,
	rule          TEXT NOT NULL,
	confidence    REAL NOT NULL,
	created_at    TEXT NOT NULL
);
`

// SQLiteIdentityRepository stores the identity graph in SQLite, used
// for local development and the CLI.
type SQLiteIdentityRepository struct {
	dbConn *sql.DB
}

// NewSQLiteIdentityRepository creates the repository and applies the
// schema.
func NewSQLiteIdentityRepository(dbConn *sql.DB) (*SQLiteIdentityRepository, error) {
	if _, err := dbConn.Exec(sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteIdentityRepository{dbConn: dbConn}, nil
}

// UniversalID returns the mapped universal id, or "" on miss.
func (r *SQLiteIdentityRepository) UniversalID(ctx context.Context, id domain.Identifier) (string, error) {
	query := `SELECT universal_id FROM identity_mappings WHERE kind = ? AND value = ?`

	var universalID string
	err := r.dbConn.QueryRowContext(ctx, query, id.Kind.String(), id.Value).Scan(&universalID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return universalID, nil
}

// AllIdentifiers returns every known identifier for a universal id,
// keyed by kind name.
func (r *SQLiteIdentityRepository) AllIdentifiers(ctx context.Context, universalID string) (map[string]string, error) {
	query := `SELECT kind, value FROM identity_mappings WHERE universal_id = ?`

	rows, err := r.dbConn.QueryContext(ctx, query, universalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, err
		}
		out[kind] = value
	}
	return out, rows.Err()
}

// Connected returns the identifiers linked to id, in either direction.
func (r *SQLiteIdentityRepository) Connected(ctx context.Context, id domain.Identifier) ([]domain.Neighbor, error) {
	query := `
		SELECT b_kind, b_value, weight FROM identity_edges WHERE a_kind = ?1 AND a_value = ?2
		UNION ALL
		SELECT a_kind, a_value, weight FROM identity_edges WHERE b_kind = ?1 AND b_value = ?2
	`

	rows, err := r.dbConn.QueryContext(ctx, query, id.Kind.String(), id.Value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []domain.Neighbor
	for rows.Next() {
		var kind, value string
		var weight float64
		if err := rows.Scan(&kind, &value, &weight); err != nil {
			return nil, err
		}
		k, err := domain.KindFromString(kind)
		if err != nil {
			continue
		}
		neighbors = append(neighbors, domain.Neighbor{
			Identifier: domain.Identifier{Kind: k, Value: value},
			Weight:     weight,
		})
	}
	return neighbors, rows.Err()
}

// SaveMapping records a mapping; an existing pair is left untouched.
func (r *SQLiteIdentityRepository) SaveMapping(ctx context.Context, id domain.Identifier, universalID string, confidence float64) error {
	query := `
		INSERT INTO identity_mappings (kind, value, universal_id, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, value) DO NOTHING
	`

	_, err := r.dbConn.ExecContext(ctx, query,
		id.Kind.String(), id.Value, universalID, confidence,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// AddEdge records a bidirectional link between two identifiers.
func (r *SQLiteIdentityRepository) AddEdge(ctx context.Context, edge domain.Edge) error {
	query := `
		INSERT INTO identity_edges (a_kind, a_value, b_kind, b_value, weight, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (a_kind, a_value, b_kind, b_value) DO UPDATE SET
			weight = excluded.weight,
			source = excluded.source
	`

	_, err := r.dbConn.ExecContext(ctx, query,
		edge.A.Kind.String(), edge.A.Value,
		edge.B.Kind.String(), edge.B.Value,
		edge.Weight, edge.Source,
		edge.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// LogStep appends one resolution audit entry.
func (r *SQLiteIdentityRepository) LogStep(ctx context.Context, step domain.ResolutionStep) error {
	query := `
		INSERT INTO resolution_steps (resolution_id, universal_id, kind, value, rule, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.dbConn.ExecContext(ctx, query,
		step.ResolutionID, step.UniversalID,
		step.Identifier.Kind.String(), step.Identifier.Value,
		step.Rule, step.Confidence,
		step.At.UTC().Format(time.RFC3339),
	)
	return err
}
