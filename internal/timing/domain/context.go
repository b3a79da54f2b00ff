package domain

import "time"

const (
	// HotPathRecencyWindow bounds how old a high-intent signal may be to
	// still accelerate a decision.
	HotPathRecencyWindow = 30 * time.Minute
	// HotPathBoostSpan is how many upcoming slots a hot path boosts.
	HotPathBoostSpan = 60
	// HotPathDecayMinutes is the time constant of the boost decay.
	HotPathDecayMinutes = 15.0
)

// SuppressionHold is an active circuit-breaker hold on a recipient.
type SuppressionHold struct {
	Active    bool
	Reason    string
	ReleaseAt time.Time
}

// HotPath is a recent high-intent signal such as a site visit.
type HotPath struct {
	Active     bool
	SignalType string
	Weight     float64
	ObservedAt time.Time
}

// ContextSignals is the read-only context snapshot fetched once per
// decision. A state change arriving mid-computation is reflected only in
// the next request.
type ContextSignals struct {
	Suppression SuppressionHold
	HotPath     HotPath
}
