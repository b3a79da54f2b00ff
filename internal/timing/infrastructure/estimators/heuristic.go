// Package estimators provides the pluggable latency, signal-weight, and
// risk predictors consumed by the decision flow.
package estimators

import (
	"context"
	"time"

	"github.com/sendflowr/pulse/internal/timing/application/services"
)

const (
	// DefaultLatencySeconds is the baseline when the channel provides none.
	DefaultLatencySeconds = 300
	// MaxLatencySeconds caps any heuristic estimate.
	MaxLatencySeconds = 900

	topOfHourMultiplier   = 1.8
	rushHourMultiplier    = 1.5
	payloadMaxUplift      = 0.2
	payloadReferenceBytes = 512 * 1024
)

// rushHours are the UTC hours with elevated provider queue pressure.
var rushHours = map[int]bool{8: true, 9: true, 18: true, 19: true}

// HeuristicLatencyEstimator predicts delivery latency from time of day
// and payload size. It never fails.
type HeuristicLatencyEstimator struct{}

// NewHeuristicLatencyEstimator creates a heuristic latency estimator.
func NewHeuristicLatencyEstimator() *HeuristicLatencyEstimator {
	return &HeuristicLatencyEstimator{}
}

// PredictLatency returns the estimated seconds between trigger and
// delivery for a send fired at the given instant.
func (e *HeuristicLatencyEstimator) PredictLatency(_ context.Context, channel services.ChannelContext, instant time.Time) (float64, error) {
	seconds := channel.DefaultLatencySeconds
	if seconds <= 0 {
		seconds = DefaultLatencySeconds
	}

	utc := instant.UTC()
	// The top of the hour is when every scheduled campaign fires at once.
	if utc.Minute() < 5 {
		seconds *= topOfHourMultiplier
	}
	if rushHours[utc.Hour()] {
		seconds *= rushHourMultiplier
	}

	// Large payloads drag on provider throughput, up to +20%.
	if channel.PayloadSizeBytes > 0 {
		uplift := payloadMaxUplift * float64(channel.PayloadSizeBytes) / payloadReferenceBytes
		if uplift > payloadMaxUplift {
			uplift = payloadMaxUplift
		}
		seconds *= 1 + uplift
	}

	if seconds > MaxLatencySeconds {
		seconds = MaxLatencySeconds
	}
	return seconds, nil
}

// signalWeights score high-intent signal types for the hot-path boost.
var signalWeights = map[string]float64{
	"site_visit":   1.2,
	"product_view": 1.2,
	"sms_click":    1.5,
	"push_click":   1.5,
}

// HeuristicSignalWeightEstimator scores signals from a fixed table; the
// time decay is applied downstream by the modifier pipeline.
type HeuristicSignalWeightEstimator struct{}

// NewHeuristicSignalWeightEstimator creates a signal weight estimator.
func NewHeuristicSignalWeightEstimator() *HeuristicSignalWeightEstimator {
	return &HeuristicSignalWeightEstimator{}
}

// PredictSignalWeight returns the boost weight for a signal type.
func (e *HeuristicSignalWeightEstimator) PredictSignalWeight(_ context.Context, signalType string, _ float64) (float64, error) {
	if w, ok := signalWeights[signalType]; ok {
		return w, nil
	}
	return 1.0, nil
}

// HeuristicRiskEstimator returns a flat low suppression risk. Hard
// suppression is handled by the circuit-breaker holds; this estimator
// exists so a trained risk model can slot in without touching the flow.
type HeuristicRiskEstimator struct {
	baseline float64
}

// NewHeuristicRiskEstimator creates a risk estimator with the default
// baseline of 0.05.
func NewHeuristicRiskEstimator() *HeuristicRiskEstimator {
	return &HeuristicRiskEstimator{baseline: 0.05}
}

// PredictSuppressionRisk returns the baseline risk score.
func (e *HeuristicRiskEstimator) PredictSuppressionRisk(_ context.Context, _ string, _ time.Time) (float64, error) {
	return e.baseline, nil
}
