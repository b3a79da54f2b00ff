package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/sendflowr/pulse/pkg/observability"
)

const (
	peakWindowMinutes = 120
	peakWindowTopK    = 3
)

// FeatureServiceConfig contains configuration for feature computation.
type FeatureServiceConfig struct {
	LookbackDays int              // event history horizon for curve building
	MinEvents    int              // batch recompute includes identities with at least this many events
	Clock        func() time.Time // injectable for tests; defaults to time.Now
	Metrics      observability.Metrics
}

// DefaultFeatureServiceConfig returns a default configuration.
func DefaultFeatureServiceConfig() FeatureServiceConfig {
	return FeatureServiceConfig{
		LookbackDays: 90,
		MinEvents:    3,
		Clock:        time.Now,
	}
}

// FeatureService computes and caches per-identity engagement features:
// the minute-level curve, its peak windows, and engagement counts.
type FeatureService struct {
	events  domain.EventRepository
	cache   domain.FeatureCache
	weights SignalWeightEstimator
	builder *domain.CurveBuilder
	config  FeatureServiceConfig
	logger  *slog.Logger
}

// NewFeatureService creates a feature service.
func NewFeatureService(
	events domain.EventRepository,
	cache domain.FeatureCache,
	weights SignalWeightEstimator,
	config FeatureServiceConfig,
	logger *slog.Logger,
) *FeatureService {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.LookbackDays <= 0 {
		config.LookbackDays = 90
	}
	if config.MinEvents <= 0 {
		config.MinEvents = 3
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureService{
		events:  events,
		cache:   cache,
		weights: weights,
		builder: domain.NewCurveBuilder(),
		config:  config,
		logger:  logger,
	}
}

// GetOrCompute returns cached features when the entry is current,
// otherwise recomputes and stores the result back. A cache write
// failure is logged and does not fail the read.
func (s *FeatureService) GetOrCompute(ctx context.Context, universalID string) (*domain.FeatureSet, error) {
	cached, err := s.cache.Features(ctx, universalID)
	if err != nil {
		s.logger.Warn("feature cache read failed", "universal_id", universalID, "error", err)
	}
	if cached.Current() {
		s.config.Metrics.Counter(observability.MetricFeatureCacheHits, 1)
		return cached, nil
	}
	s.config.Metrics.Counter(observability.MetricFeatureCacheMiss, 1)

	features, err := s.Compute(ctx, universalID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.StoreFeatures(ctx, features); err != nil {
		s.logger.Warn("feature cache write failed", "universal_id", universalID, "error", err)
	}
	return features, nil
}

// Compute builds features from the event store. An identity with no
// qualifying clicks gets the shaped cold-start prior, never the uniform
// distribution.
func (s *FeatureService) Compute(ctx context.Context, universalID string) (*domain.FeatureSet, error) {
	now := s.config.Clock().UTC()

	clicks, err := s.events.ClickEvents(ctx, universalID, s.config.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch click events: %w", err)
	}

	counts, err := s.events.EventCounts(ctx, universalID)
	if err != nil {
		return nil, fmt.Errorf("fetch event counts: %w", err)
	}

	var curve *domain.EngagementCurve
	if len(clicks) == 0 {
		curve, err = s.builder.ColdStartPrior(domain.CohortHints{})
	} else {
		curve, err = s.builder.FromEvents(clicks, now)
	}
	if err != nil {
		return nil, fmt.Errorf("build engagement curve: %w", err)
	}

	windows, err := curve.PeakWindows(peakWindowMinutes, peakWindowTopK)
	if err != nil {
		return nil, fmt.Errorf("compute peak windows: %w", err)
	}

	raw := curve.Sharpness() * curve.ProbabilityAt(curve.PeakSlot())
	confidence := domain.Calibrate(raw, len(clicks))

	s.config.Metrics.Counter(observability.MetricFeaturesComputed, 1)
	return &domain.FeatureSet{
		UniversalID:     universalID,
		Version:         domain.FeatureVersion,
		Curve:           curve,
		CurveConfidence: confidence,
		PeakWindows:     windows,
		Counts:          counts,
		ComputedAt:      now,
	}, nil
}

// ComputeAll recomputes features for every identity with enough recent
// events and returns how many were refreshed. Per-identity failures are
// logged and skipped; the batch keeps going.
func (s *FeatureService) ComputeAll(ctx context.Context) (int, error) {
	ids, err := s.events.ActiveIdentities(ctx, s.config.MinEvents)
	if err != nil {
		return 0, fmt.Errorf("list active identities: %w", err)
	}

	computed := 0
	for _, id := range ids {
		features, err := s.Compute(ctx, id)
		if err != nil {
			s.logger.Warn("feature recompute failed", "universal_id", id, "error", err)
			continue
		}
		if err := s.cache.StoreFeatures(ctx, features); err != nil {
			s.logger.Warn("feature cache write failed", "universal_id", id, "error", err)
			continue
		}
		computed++
	}

	s.logger.Info("feature batch complete", "identities", len(ids), "computed", computed)
	return computed, nil
}

// ContextSignals fetches the suppression and hot-path snapshot for one
// decision. The snapshot is read once and never re-validated.
func (s *FeatureService) ContextSignals(ctx context.Context, universalID string) (domain.ContextSignals, error) {
	now := s.config.Clock().UTC()
	var signals domain.ContextSignals

	stamps, err := s.events.LatestSuppressionEvents(ctx, universalID)
	if err != nil {
		return signals, fmt.Errorf("fetch suppression events: %w", err)
	}
	for _, stamp := range stamps {
		window, ok := domain.CircuitBreakerWindows[stamp.EventType]
		if !ok {
			continue
		}
		release := stamp.Timestamp.Add(window)
		if release.After(now) && release.After(signals.Suppression.ReleaseAt) {
			signals.Suppression = domain.SuppressionHold{
				Active:    true,
				Reason:    stamp.EventType,
				ReleaseAt: release,
			}
		}
	}

	hot, err := s.events.LatestHotPathEvent(ctx, universalID, domain.HotPathRecencyWindow)
	if err != nil {
		return signals, fmt.Errorf("fetch hot path event: %w", err)
	}
	if hot != nil {
		minutesAgo := now.Sub(hot.Timestamp).Minutes()
		weight, err := s.weights.PredictSignalWeight(ctx, hot.EventType, minutesAgo)
		if err != nil {
			s.logger.Warn("signal weight prediction failed", "universal_id", universalID, "error", err)
			weight = 1.0
		}
		signals.HotPath = domain.HotPath{
			Active:     true,
			SignalType: hot.EventType,
			Weight:     weight,
			ObservedAt: hot.Timestamp,
		}
	}

	return signals, nil
}
