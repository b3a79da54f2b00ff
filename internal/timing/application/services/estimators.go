package services

import (
	"context"
	"time"
)

// ChannelContext describes the delivery channel a decision targets. The
// latency estimator uses it to account for provider and payload effects.
type ChannelContext struct {
	Channel               string
	Provider              string
	CampaignType          string
	PayloadSizeBytes      int
	QueueDepthEstimate    int
	DefaultLatencySeconds float64
}

// LatencyEstimator predicts end-to-end delivery latency in seconds for a
// send fired at the given instant.
type LatencyEstimator interface {
	PredictLatency(ctx context.Context, channel ChannelContext, instant time.Time) (float64, error)
}

// SignalWeightEstimator scores a high-intent signal by type and age.
type SignalWeightEstimator interface {
	PredictSignalWeight(ctx context.Context, signalType string, minutesAgo float64) (float64, error)
}

// RiskEstimator predicts the probability that sending now harms the
// relationship (soft suppression), in [0, 1].
type RiskEstimator interface {
	PredictSuppressionRisk(ctx context.Context, universalID string, instant time.Time) (float64, error)
}
