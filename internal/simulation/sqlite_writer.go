package simulation

import (
	"context"
	"database/sql"
)

// SQLiteEventWriter loads generated events into a local SQLite file.
type SQLiteEventWriter struct {
	dbConn *sql.DB
}

// NewSQLiteEventWriter creates a new SQLiteEventWriter.
func NewSQLiteEventWriter(dbConn *sql.DB) *SQLiteEventWriter {
	return &SQLiteEventWriter{dbConn: dbConn}
}

// EnsureSchema creates the engagement_events table if it is missing.
func (w *SQLiteEventWriter) EnsureSchema(ctx context.Context) error {
	_, err := w.dbConn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS engagement_events (
			universal_id    TEXT NOT NULL,
			event_type      TEXT NOT NULL,
			event_timestamp TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_engagement_events_identity
			ON engagement_events(universal_id, event_type, event_timestamp);
	`)
	return err
}

// WriteEvents inserts events in a single transaction and returns the
// number of rows written.
func (w *SQLiteEventWriter) WriteEvents(ctx context.Context, events []Event) (int64, error) {
	tx, err := w.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO engagement_events (universal_id, event_type, event_timestamp)
		VALUES (?1, ?2, ?3)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var written int64
	for _, event := range events {
		if _, err := stmt.ExecContext(ctx,
			event.UniversalID,
			event.EventType,
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		); err != nil {
			return written, err
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}
