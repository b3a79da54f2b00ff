package domain

import "context"

// Neighbor is an identifier connected to another in the graph, with the
// linking edge weight.
type Neighbor struct {
	Identifier Identifier
	Weight     float64
}

// Repository persists the identity graph: identifier-to-universal-id
// mappings, edges, and the resolution audit log.
type Repository interface {
	// UniversalID returns the mapped universal id for an identifier, or
	// "" when none is cached.
	UniversalID(ctx context.Context, id Identifier) (string, error)

	// AllIdentifiers returns every known identifier for a universal id,
	// keyed by kind name.
	AllIdentifiers(ctx context.Context, universalID string) (map[string]string, error)

	// Connected returns the identifiers linked to id by graph edges.
	Connected(ctx context.Context, id Identifier) ([]Neighbor, error)

	// SaveMapping records an identifier-to-universal-id mapping.
	// Mappings are idempotent: re-saving an existing pair is a no-op.
	SaveMapping(ctx context.Context, id Identifier, universalID string, confidence float64) error

	// AddEdge records a bidirectional link between two identifiers.
	AddEdge(ctx context.Context, edge Edge) error

	// LogStep appends one resolution audit entry.
	LogStep(ctx context.Context, step ResolutionStep) error
}
