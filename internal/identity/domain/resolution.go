package domain

import "time"

// Edge links two identifiers in the identity graph. Weight 1.0 marks a
// deterministic link; anything lower is probabilistic.
type Edge struct {
	A         Identifier
	B         Identifier
	Weight    float64
	Source    string
	CreatedAt time.Time
}

// ResolutionStep is one audit entry recorded while resolving.
type ResolutionStep struct {
	ResolutionID string
	UniversalID  string
	Identifier   Identifier
	Rule         string
	Confidence   float64
	At           time.Time
}

// Resolution is the outcome of resolving caller-supplied keys to a
// universal identifier, with its audit trail.
type Resolution struct {
	UniversalID string
	Input       Keys
	Resolved    map[string]string
	Steps       []string
	Confidence  float64
	ResolvedAt  time.Time
}
