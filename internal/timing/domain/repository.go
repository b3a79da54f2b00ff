package domain

import (
	"context"
	"time"
)

// EventRepository reads engagement history from the analytical event
// store. The core only reads; durability belongs to the collaborator.
type EventRepository interface {
	// ClickEvents returns click timestamps for an identity within the
	// lookback horizon, oldest first.
	ClickEvents(ctx context.Context, universalID string, lookbackDays int) ([]time.Time, error)

	// EventCounts returns recency/frequency features for an identity.
	EventCounts(ctx context.Context, universalID string) (EngagementCounts, error)

	// LatestSuppressionEvents returns the newest observation of each
	// circuit-breaker event type, newest first.
	LatestSuppressionEvents(ctx context.Context, universalID string) ([]EventStamp, error)

	// LatestHotPathEvent returns the newest high-intent signal within
	// the window, or nil when none fired.
	LatestHotPathEvent(ctx context.Context, universalID string, window time.Duration) (*EventStamp, error)

	// ActiveIdentities lists identities with at least minEvents events
	// in the lookback horizon, most active first.
	ActiveIdentities(ctx context.Context, minEvents int) ([]string, error)
}

// FeatureCache stores computed feature sets and emitted decisions with a
// TTL. Writes are idempotent overwrite-by-key; no locking is required.
type FeatureCache interface {
	// Features returns the cached feature set, or nil on miss.
	Features(ctx context.Context, universalID string) (*FeatureSet, error)

	// StoreFeatures overwrites the cached feature set.
	StoreFeatures(ctx context.Context, features *FeatureSet) error

	// CacheDecision stores an emitted decision for idempotent reads.
	CacheDecision(ctx context.Context, decision *TimingDecision) error
}

// ExplanationSink persists the audit explanation for a decision.
// Persistence is best effort: a sink failure never fails the decision.
type ExplanationSink interface {
	StoreExplanation(ctx context.Context, decision *TimingDecision, signals ContextSignals) error
}
