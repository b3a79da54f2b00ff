package simulation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEventWriter bulk-loads synthetic events into the event store.
type PostgresEventWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresEventWriter creates a new PostgresEventWriter.
func NewPostgresEventWriter(pool *pgxpool.Pool) *PostgresEventWriter {
	return &PostgresEventWriter{pool: pool}
}

// EnsureSchema creates the event table when it does not exist yet.
func (w *PostgresEventWriter) EnsureSchema(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS engagement_events (
			universal_id    TEXT NOT NULL,
			event_type      TEXT NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_engagement_events_identity
			ON engagement_events (universal_id, event_type, event_timestamp);
	`)
	return err
}

// WriteEvents copies the batch into the event table.
func (w *PostgresEventWriter) WriteEvents(ctx context.Context, events []Event) (int64, error) {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{e.UniversalID, e.EventType, e.Timestamp.UTC()}
	}

	copied, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"engagement_events"},
		[]string{"universal_id", "event_type", "event_timestamp"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy events: %w", err)
	}
	return copied, nil
}
