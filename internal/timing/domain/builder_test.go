package domain_test

import (
	"testing"
	"time"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecencyWeight_HalfLife(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	fresh := domain.RecencyWeight(now, now, 72*time.Hour)
	aged := domain.RecencyWeight(now.Add(-72*time.Hour), now, 72*time.Hour)

	assert.InDelta(t, 1.0, fresh, 1e-12)
	assert.InDelta(t, fresh/2, aged, 1e-12)

	// Holds for any configured half-life.
	aged = domain.RecencyWeight(now.Add(-24*time.Hour), now, 24*time.Hour)
	assert.InDelta(t, 0.5, aged, 1e-12)
}

func TestFromEvents_EmptyYieldsUniform(t *testing.T) {
	builder := domain.NewCurveBuilder()

	curve, err := builder.FromEvents(nil, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 1.0/domain.MinutesPerWeek, curve.ProbabilityAt(1234), 1e-12)
	assert.InDelta(t, 0.0, curve.Sharpness(), 1e-9)
}

func TestFromEvents_SingleEventPeaksNearItsSlot(t *testing.T) {
	// Monday 10:00 is slot 600.
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	builder := &domain.CurveBuilder{HalfLife: 72 * time.Hour, KernelSigma: 45}

	curve, err := builder.FromEvents([]time.Time{now}, now)
	require.NoError(t, err)

	peak := curve.PeakSlot()
	diff := peak - 600
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, 45)
	// The Laplace floor keeps every slot strictly positive.
	assert.Greater(t, curve.ProbabilityAt(5000), 0.0)
}

func TestFromEvents_RecentEventsDominate(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	builder := &domain.CurveBuilder{HalfLife: 72 * time.Hour, KernelSigma: 10}

	// Monday 11:30 (slot 690) vs Tuesday 18:00 two weeks back (slot 2520).
	recent := now.Add(-30 * time.Minute)
	stale := now.AddDate(0, 0, -13).Add(6 * time.Hour)

	curve, err := builder.FromEvents([]time.Time{recent, stale}, now)
	require.NoError(t, err)

	assert.Greater(t, curve.ProbabilityAt(690), curve.ProbabilityAt(2520))
}

func TestWeightedEvents(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	builder := domain.NewCurveBuilder()

	events := builder.WeightedEvents([]time.Time{now, now.Add(-72 * time.Hour)}, now)
	require.Len(t, events, 2)
	assert.InDelta(t, 1.0, events[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, events[1].Weight, 1e-12)
}

func TestColdStartPrior_Shaped(t *testing.T) {
	builder := domain.NewCurveBuilder()

	curve, err := builder.ColdStartPrior(domain.CohortHints{UniversalID: "pl_test"})
	require.NoError(t, err)

	// Mon 19:00, Mon 09:00, Mon 03:00, Sat 03:00.
	mondayEvening := 19 * domain.MinutesPerHour
	mondayMorning := 9 * domain.MinutesPerHour
	mondayNight := 3 * domain.MinutesPerHour
	saturdayNight := 5*domain.MinutesPerDay + mondayNight

	// Evening bump beats morning bump beats baseline.
	assert.Greater(t, curve.ProbabilityAt(mondayEvening), curve.ProbabilityAt(mondayMorning))
	assert.Greater(t, curve.ProbabilityAt(mondayMorning), curve.ProbabilityAt(mondayNight))
	// Weekend uplift over the same weekday minute.
	assert.Greater(t, curve.ProbabilityAt(saturdayNight), curve.ProbabilityAt(mondayNight))
	// Not uniform.
	assert.Greater(t, curve.Sharpness(), 0.0)
}

func TestFromHourlyHistogram(t *testing.T) {
	builder := domain.NewCurveBuilder()
	hist := map[int]float64{9: 0.15, 10: 0.12, 14: 0.10, 18: 0.20, 19: 0.15}

	curve, err := builder.FromHourlyHistogram(hist)
	require.NoError(t, err)

	sum := 0.0
	for _, p := range curve.Probabilities() {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// The 18:00 hour carries the most mass on every day of the week.
	for day := 0; day < 7; day++ {
		base := day * domain.MinutesPerDay
		assert.Greater(t,
			curve.ProbabilityAt(base+18*domain.MinutesPerHour+30),
			curve.ProbabilityAt(base+12*domain.MinutesPerHour+30))
	}
}

func TestFromHourlyHistogram_Empty(t *testing.T) {
	curve, err := domain.NewCurveBuilder().FromHourlyHistogram(map[int]float64{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/domain.MinutesPerWeek, curve.ProbabilityAt(0), 1e-12)
}
