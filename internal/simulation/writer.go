package simulation

import "context"

// EventWriter loads generated events into an engagement event store.
type EventWriter interface {
	// EnsureSchema creates the target table if it is missing.
	EnsureSchema(ctx context.Context) error

	// WriteEvents inserts events, returning the number of rows written.
	WriteEvents(ctx context.Context, events []Event) (int64, error)
}
