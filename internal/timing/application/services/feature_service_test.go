package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeatureService(repo *stubEventRepo, cache *stubCache, weights *stubWeights) *FeatureService {
	config := DefaultFeatureServiceConfig()
	config.Clock = func() time.Time { return testNow }
	return NewFeatureService(repo, cache, weights, config, nil)
}

func TestGetOrCompute_CacheHit(t *testing.T) {
	cached := &domain.FeatureSet{
		UniversalID: "pl_abc",
		Version:     domain.FeatureVersion,
		Curve:       domain.UniformCurve(),
		ComputedAt:  testNow.Add(-time.Hour),
	}
	cache := newStubCache()
	cache.features["pl_abc"] = cached

	// A failing event store proves the hit skips recomputation.
	repo := &stubEventRepo{clicksErr: errors.New("store down")}
	svc := newTestFeatureService(repo, cache, &stubWeights{weight: 1.0})

	got, err := svc.GetOrCompute(context.Background(), "pl_abc")
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestGetOrCompute_StaleVersionRecomputes(t *testing.T) {
	cache := newStubCache()
	cache.features["pl_abc"] = &domain.FeatureSet{
		UniversalID: "pl_abc",
		Version:     "1.0_hourly",
		Curve:       domain.UniformCurve(),
	}
	repo := &stubEventRepo{clicks: clicksAtSlot(570, 5)}
	svc := newTestFeatureService(repo, cache, &stubWeights{weight: 1.0})

	got, err := svc.GetOrCompute(context.Background(), "pl_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.FeatureVersion, got.Version)
	assert.Same(t, got, cache.features["pl_abc"], "recomputed entry stored back")
}

func TestCompute_ColdStartUsesShapedPrior(t *testing.T) {
	svc := newTestFeatureService(&stubEventRepo{}, newStubCache(), &stubWeights{weight: 1.0})

	features, err := svc.Compute(context.Background(), "pl_new")
	require.NoError(t, err)

	// Morning slots carry more mass than the small hours: the prior is
	// shaped, not uniform.
	morning := features.Curve.ProbabilityAt(510) // Mon 08:30
	night := features.Curve.ProbabilityAt(180)   // Mon 03:00
	assert.Greater(t, morning, night)
}

func TestCompute_PeakWindowsAndConfidence(t *testing.T) {
	repo := &stubEventRepo{
		clicks: clicksAtSlot(570, 10),
		counts: domain.EngagementCounts{ClickCount30d: 10},
	}
	svc := newTestFeatureService(repo, newStubCache(), &stubWeights{weight: 1.0})

	features, err := svc.Compute(context.Background(), "pl_abc")
	require.NoError(t, err)

	require.Len(t, features.PeakWindows, 3)
	assert.InDelta(t, 570, features.PeakWindows[0].StartSlot, 120)
	assert.Greater(t, features.CurveConfidence, 0.0)
	assert.LessOrEqual(t, features.CurveConfidence, 1.0)
	assert.Equal(t, domain.FeatureVersion, features.Version)
	assert.Equal(t, 10, features.Counts.ClickCount30d)
}

func TestComputeAll_RefreshesActiveIdentities(t *testing.T) {
	repo := &stubEventRepo{clicks: clicksAtSlot(570, 5)}
	cache := newStubCache()
	svc := newTestFeatureService(repo, cache, &stubWeights{weight: 1.0})

	computed, err := svc.ComputeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, computed)
	assert.Contains(t, cache.features, "pl_a")
	assert.Contains(t, cache.features, "pl_b")
}

func TestContextSignals_SuppressionHold(t *testing.T) {
	repo := &stubEventRepo{
		suppression: []domain.EventStamp{
			{EventType: "support_ticket", Timestamp: testNow.Add(-47 * time.Hour)},
			{EventType: "unsubscribe_request", Timestamp: testNow.Add(-200 * time.Hour)},
		},
	}
	svc := newTestFeatureService(repo, newStubCache(), &stubWeights{weight: 1.0})

	signals, err := svc.ContextSignals(context.Background(), "pl_abc")
	require.NoError(t, err)

	// The 48h ticket hold is still live; the 168h unsubscribe hold has
	// lapsed.
	assert.True(t, signals.Suppression.Active)
	assert.Equal(t, "support_ticket", signals.Suppression.Reason)
	assert.True(t, signals.Suppression.ReleaseAt.Equal(testNow.Add(time.Hour)))
	assert.False(t, signals.HotPath.Active)
}

func TestContextSignals_LatestReleaseWins(t *testing.T) {
	repo := &stubEventRepo{
		suppression: []domain.EventStamp{
			{EventType: "support_ticket", Timestamp: testNow.Add(-40 * time.Hour)},
			{EventType: "unsubscribe_request", Timestamp: testNow.Add(-24 * time.Hour)},
		},
	}
	svc := newTestFeatureService(repo, newStubCache(), &stubWeights{weight: 1.0})

	signals, err := svc.ContextSignals(context.Background(), "pl_abc")
	require.NoError(t, err)

	assert.Equal(t, "unsubscribe_request", signals.Suppression.Reason)
	assert.True(t, signals.Suppression.ReleaseAt.Equal(testNow.Add(144*time.Hour)))
}

func TestContextSignals_HotPath(t *testing.T) {
	repo := &stubEventRepo{
		hot: &domain.EventStamp{EventType: "site_visit", Timestamp: testNow.Add(-10 * time.Minute)},
	}
	svc := newTestFeatureService(repo, newStubCache(), &stubWeights{weight: 1.2})

	signals, err := svc.ContextSignals(context.Background(), "pl_abc")
	require.NoError(t, err)

	assert.True(t, signals.HotPath.Active)
	assert.Equal(t, "site_visit", signals.HotPath.SignalType)
	assert.Equal(t, 1.2, signals.HotPath.Weight)
	assert.False(t, signals.Suppression.Active)
}

func TestContextSignals_WeightFailureDefaultsToOne(t *testing.T) {
	repo := &stubEventRepo{
		hot: &domain.EventStamp{EventType: "product_view", Timestamp: testNow.Add(-3 * time.Minute)},
	}
	svc := newTestFeatureService(repo, newStubCache(), &stubWeights{err: errors.New("model down")})

	signals, err := svc.ContextSignals(context.Background(), "pl_abc")
	require.NoError(t, err)

	assert.True(t, signals.HotPath.Active)
	assert.Equal(t, 1.0, signals.HotPath.Weight)
}
