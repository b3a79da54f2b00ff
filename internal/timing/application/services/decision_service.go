package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/sendflowr/pulse/pkg/observability"
)

// riskCooloff is how long a risk-suppressed recipient is held before
// the next send opportunity.
const riskCooloff = time.Hour

// DecisionRequest carries the caller's inputs for one timing decision.
// Nil bounds default to now and now plus seven days.
type DecisionRequest struct {
	UniversalID string
	SendAfter   *time.Time
	SendBefore  *time.Time
	Channel     ChannelContext
}

// DecisionServiceConfig contains configuration for decision assembly.
type DecisionServiceConfig struct {
	RiskThreshold         float64          // soft suppression cutoff on the risk score
	DefaultLatencySeconds float64          // used when the estimator cannot answer
	Clock                 func() time.Time // injectable for tests; defaults to time.Now
	Metrics               observability.Metrics
}

// DefaultDecisionServiceConfig returns a default configuration.
func DefaultDecisionServiceConfig() DecisionServiceConfig {
	return DecisionServiceConfig{
		RiskThreshold:         0.8,
		DefaultLatencySeconds: 300,
		Clock:                 time.Now,
	}
}

// DecisionService runs the full decision flow: features, context
// snapshot, modifier pipeline, window search, latency compensation, and
// assembly of the immutable decision record.
type DecisionService struct {
	features     *FeatureService
	latency      LatencyEstimator
	risk         RiskEstimator
	cache        domain.FeatureCache
	explanations domain.ExplanationSink
	builder      *domain.CurveBuilder
	config       DecisionServiceConfig
	logger       *slog.Logger
}

// NewDecisionService creates a decision service.
func NewDecisionService(
	features *FeatureService,
	latency LatencyEstimator,
	risk RiskEstimator,
	cache domain.FeatureCache,
	explanations domain.ExplanationSink,
	config DecisionServiceConfig,
	logger *slog.Logger,
) *DecisionService {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.RiskThreshold <= 0 {
		config.RiskThreshold = 0.8
	}
	if config.DefaultLatencySeconds <= 0 {
		config.DefaultLatencySeconds = 300
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionService{
		features:     features,
		latency:      latency,
		risk:         risk,
		cache:        cache,
		explanations: explanations,
		builder:      domain.NewCurveBuilder(),
		config:       config,
		logger:       logger,
	}
}

// Decide produces one timing decision. Every call emits a fresh record;
// decisions are never updated after emission.
func (s *DecisionService) Decide(ctx context.Context, req DecisionRequest) (*domain.TimingDecision, error) {
	if req.UniversalID == "" {
		return nil, fmt.Errorf("%w: universal id is required", domain.ErrValidation)
	}

	started := time.Now()
	now := s.config.Clock().UTC()
	sendAfter, sendBefore, err := s.normalizeBounds(req, now)
	if err != nil {
		return nil, err
	}

	// Feature failures degrade to the cold-start prior; the decision
	// still gets made.
	features, err := s.features.GetOrCompute(ctx, req.UniversalID)
	if err != nil {
		s.logger.Warn("feature fetch failed, using cold start prior",
			"universal_id", req.UniversalID, "error", err)
		curve, buildErr := s.builder.ColdStartPrior(domain.CohortHints{})
		if buildErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, buildErr)
		}
		features = &domain.FeatureSet{
			UniversalID: req.UniversalID,
			Version:     domain.FeatureVersion,
			Curve:       curve,
			ComputedAt:  now,
		}
	}

	// Context has no local fallback: deciding without the suppression
	// snapshot could send into an active hold.
	signals, err := s.features.ContextSignals(ctx, req.UniversalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	window := domain.NewSlotWindow(domain.ToSlot(sendAfter), domain.ToSlot(sendBefore))
	basePeak := features.Curve.PeakSlot()

	if signals.Suppression.Active {
		return s.decideSuppressed(ctx, req, signals, basePeak,
			signals.Suppression.ReleaseAt, sendAfter, sendBefore, signals.Suppression.Reason)
	}

	riskScore, err := s.risk.PredictSuppressionRisk(ctx, req.UniversalID, now)
	if err != nil {
		s.logger.Warn("risk prediction failed, treating as zero",
			"universal_id", req.UniversalID, "error", err)
		riskScore = 0
	}
	if riskScore > s.config.RiskThreshold {
		return s.decideSuppressed(ctx, req, signals, basePeak,
			now.Add(riskCooloff), sendAfter, sendBefore, "risk-suppression")
	}

	boosted := domain.ApplyHotPath(features.Curve, signals.HotPath, now)
	bestSlot, ok := window.BestSlot(boosted.Curve())
	if !ok {
		return nil, domain.ErrNoValidWindow
	}

	// Slot offsets are measured from the window start, never before it.
	anchor := now
	if sendAfter.After(anchor) {
		anchor = sendAfter
	}
	anchorMinute := anchor.Truncate(time.Minute)
	slotsAhead := ((bestSlot-domain.ToSlot(anchor))%domain.MinutesPerWeek + domain.MinutesPerWeek) % domain.MinutesPerWeek
	target := anchorMinute.Add(time.Duration(slotsAhead) * time.Minute)

	// Confidence is read from the pre-boost curve so multiplicative
	// boosts never inflate it.
	raw := features.Curve.Sharpness() * features.Curve.ProbabilityAt(bestSlot)
	confidence := domain.Calibrate(raw, features.Counts.ClickCount30d)

	latencySeconds, trigger := s.compensateLatency(ctx, req.Channel, target, now)

	decision := domain.NewTimingDecision(
		req.UniversalID,
		bestSlot,
		trigger,
		latencySeconds,
		confidence,
		domain.DecisionDebug{
			BaseCurvePeakMinute: basePeak,
			AppliedWeights:      boosted.AppliedWeights(),
			Suppressed:          false,
		},
	)

	s.persist(ctx, decision, signals)
	s.config.Metrics.Counter(observability.MetricDecisionsEmitted, 1)
	s.config.Metrics.Timing(observability.MetricDecisionDuration, time.Since(started))
	s.logger.Info("timing decision emitted",
		"decision_id", decision.DecisionID,
		"universal_id", decision.UniversalID,
		"target_minute", decision.TargetMinuteUTC,
		"confidence", decision.ConfidenceScore,
	)
	return decision, nil
}

// decideSuppressed emits the circuit-breaker decision: target at the
// hold release, zero confidence, no latency compensation.
func (s *DecisionService) decideSuppressed(
	ctx context.Context,
	req DecisionRequest,
	signals domain.ContextSignals,
	basePeak int,
	releaseAt, sendAfter, sendBefore time.Time,
	reason string,
) (*domain.TimingDecision, error) {
	target := releaseAt
	if sendAfter.After(target) {
		target = sendAfter
	}
	if target.After(sendBefore) {
		return nil, fmt.Errorf("%w: hold releases at %s", domain.ErrSuppressionConflict,
			releaseAt.UTC().Format(time.RFC3339))
	}

	decision := domain.NewTimingDecision(
		req.UniversalID,
		domain.ToSlot(target),
		target,
		0,
		0,
		domain.DecisionDebug{
			BaseCurvePeakMinute: basePeak,
			AppliedWeights:      []domain.AppliedWeight{{Signal: reason, Weight: -1.0}},
			Suppressed:          true,
		},
	)

	s.persist(ctx, decision, signals)
	s.config.Metrics.Counter(observability.MetricDecisionsSuppressed, 1,
		observability.T("reason", reason))
	s.logger.Info("suppressed decision emitted",
		"decision_id", decision.DecisionID,
		"universal_id", decision.UniversalID,
		"reason", reason,
		"release_at", target,
	)
	return decision, nil
}

// compensateLatency subtracts predicted latency from the target instant
// and rolls the target forward by whole weeks until the trigger is not
// in the past.
func (s *DecisionService) compensateLatency(
	ctx context.Context,
	channel ChannelContext,
	target, now time.Time,
) (float64, time.Time) {
	predict := func(instant time.Time) float64 {
		seconds, err := s.latency.PredictLatency(ctx, channel, instant)
		if err != nil || seconds < 0 {
			if err != nil {
				s.logger.Warn("latency prediction failed, using default", "error", err)
			}
			s.config.Metrics.Counter(observability.MetricLatencyFallbacks, 1)
			if channel.DefaultLatencySeconds > 0 {
				return channel.DefaultLatencySeconds
			}
			return s.config.DefaultLatencySeconds
		}
		return seconds
	}

	latencySeconds := predict(target)
	trigger := target.Add(-time.Duration(latencySeconds * float64(time.Second)))
	for trigger.Before(now) {
		target = target.AddDate(0, 0, 7)
		latencySeconds = predict(target)
		trigger = target.Add(-time.Duration(latencySeconds * float64(time.Second)))
	}
	return latencySeconds, trigger
}

// normalizeBounds clamps the caller bounds and rejects empty windows.
func (s *DecisionService) normalizeBounds(req DecisionRequest, now time.Time) (time.Time, time.Time, error) {
	sendAfter := now
	if req.SendAfter != nil && req.SendAfter.After(now) {
		sendAfter = req.SendAfter.UTC()
	}
	sendBefore := sendAfter.AddDate(0, 0, 7)
	if req.SendBefore != nil {
		sendBefore = req.SendBefore.UTC()
	}
	if !sendBefore.After(sendAfter) {
		return time.Time{}, time.Time{}, domain.ErrNoValidWindow
	}
	return sendAfter, sendBefore, nil
}

// persist writes the decision cache entry and the audit explanation.
// Both are best effort and never fail the decision.
func (s *DecisionService) persist(ctx context.Context, decision *domain.TimingDecision, signals domain.ContextSignals) {
	if err := s.cache.CacheDecision(ctx, decision); err != nil {
		s.logger.Warn("decision cache write failed", "decision_id", decision.DecisionID, "error", err)
	}
	if err := s.explanations.StoreExplanation(ctx, decision, signals); err != nil {
		s.logger.Warn("explanation store failed", "decision_id", decision.DecisionID, "error", err)
	}
}
