// Package persistence stores the identity graph.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sendflowr/pulse/internal/identity/domain"
)

// PostgresIdentityRepository stores the identity graph in PostgreSQL.
type PostgresIdentityRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresIdentityRepository creates a new PostgresIdentityRepository.
func NewPostgresIdentityRepository(pool *pgxpool.Pool) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{pool: pool}
}

// UniversalID returns the mapped universal id, or "" on miss.
func (r *PostgresIdentityRepository) UniversalID(ctx context.Context, id domain.Identifier) (string, error) {
	query := `
		SELECT universal_id
		FROM identity_mappings
		WHERE kind = $1 AND value = $2
	`

	var universalID string
	err := r.pool.QueryRow(ctx, query, id.Kind.String(), id.Value).Scan(&universalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return universalID, nil
}

// AllIdentifiers returns every known identifier for a universal id,
// keyed by kind name.
func (r *PostgresIdentityRepository) AllIdentifiers(ctx context.Context, universalID string) (map[string]string, error) {
	query := `
		SELECT kind, value
		FROM identity_mappings
		WHERE universal_id = $1
	`

	rows, err := r.pool.Query(ctx, query, universalID)
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
func (r *PostgresIdentityRepository) Connected(ctx context.Context, id domain.Identifier) ([]domain.Neighbor, error) {
	query := `
		SELECT b_kind, b_value, weight FROM identity_edges WHERE a_kind = $1 AND a_value = $2
		UNION ALL
		SELECT a_kind, a_value, weight FROM identity_edges WHERE b_kind = $1 AND b_value = $2
	`

	rows, err := r.pool.Query(ctx, query, id.Kind.String(), id.Value)
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
func (r *PostgresIdentityRepository) SaveMapping(ctx context.Context, id domain.Identifier, universalID string, confidence float64) error {
	query := `
		INSERT INTO identity_mappings (kind, value, universal_id, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, value) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, id.Kind.String(), id.Value, universalID, confidence, time.Now().UTC())
	return err
}

// AddEdge records a bidirectional link between two identifiers.
func (r *PostgresIdentityRepository) AddEdge(ctx context.Context, edge domain.Edge) error {
	query := `
		INSERT INTO identity_edges (a_kind, a_value, b_kind, b_value, weight, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (a_kind, a_value, b_kind, b_value) DO UPDATE SET
			weight = EXCLUDED.weight,
			source = EXCLUDED.source
	`

	_, err := r.pool.Exec(ctx, query,
		edge.A.Kind.String(), edge.A.Value,
		edge.B.Kind.String(), edge.B.Value,
		edge.Weight, edge.Source, edge.CreatedAt,
	)
	return err
}

// LogStep appends one resolution audit entry.
func (r *PostgresIdentityRepository) LogStep(ctx context.Context, step domain.ResolutionStep) error {
	query := `
		INSERT INTO resolution_steps (resolution_id, universal_id, kind, value, rule, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		step.ResolutionID, step.UniversalID,
		step.Identifier.Kind.String(), step.Identifier.Value,
		step.Rule, step.Confidence, step.At,
	)
	return err
}
