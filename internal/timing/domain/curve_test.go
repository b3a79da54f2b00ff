package domain_test

import (
	"math"
	"testing"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probTolerance = 1e-9

func uniformProb() float64 { return 1.0 / domain.MinutesPerWeek }

func TestNewEngagementCurve_Normalizes(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	masses[100] = 3.0
	masses[200] = 1.0

	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	sum := 0.0
	for _, p := range curve.Probabilities() {
		require.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, probTolerance)
	assert.InDelta(t, 0.75, curve.ProbabilityAt(100), probTolerance)
	assert.InDelta(t, 0.25, curve.ProbabilityAt(200), probTolerance)
}

func TestNewEngagementCurve_ZeroMassFallsBackToUniform(t *testing.T) {
	curve, err := domain.NewEngagementCurve(make([]float64, domain.MinutesPerWeek))
	require.NoError(t, err)

	assert.InDelta(t, uniformProb(), curve.ProbabilityAt(0), probTolerance)
	assert.InDelta(t, uniformProb(), curve.ProbabilityAt(9999), probTolerance)
}

func TestNewEngagementCurve_RejectsBadInput(t *testing.T) {
	_, err := domain.NewEngagementCurve(make([]float64, 24))
	assert.ErrorIs(t, err, domain.ErrCurveLength)

	masses := make([]float64, domain.MinutesPerWeek)
	masses[5] = -0.1
	_, err = domain.NewEngagementCurve(masses)
	assert.ErrorIs(t, err, domain.ErrNegativeMass)
}

func TestProbabilityAt_Periodic(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	masses[42] = 1.0
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	for _, s := range []int{0, 42, 5000, 10079} {
		want := curve.ProbabilityAt(s)
		assert.Equal(t, want, curve.ProbabilityAt(s+domain.MinutesPerWeek))
		assert.Equal(t, want, curve.ProbabilityAt(s-domain.MinutesPerWeek))
	}
}

func TestInterpolate_MatchesExactSlots(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	for i := range masses {
		masses[i] = 1.0 + 0.5*math.Sin(2*math.Pi*float64(i)/domain.MinutesPerWeek)
	}
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	for _, s := range []int{0, 1, 600, 10079} {
		assert.InDelta(t, curve.ProbabilityAt(s), curve.Interpolate(float64(s)), probTolerance)
	}
}

func TestInterpolate_BlendsAcrossWeekBoundary(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	// Spike straddling the boundary.
	masses[10079] = 1.0
	masses[0] = 1.0
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	mid := curve.Interpolate(10079.5)
	assert.Greater(t, mid, curve.ProbabilityAt(10078))
	// Periodic: the same offset one week later reads identically.
	assert.InDelta(t, mid, curve.Interpolate(10079.5+domain.MinutesPerWeek), probTolerance)
	// Negative offsets wrap backwards.
	assert.InDelta(t, mid, curve.Interpolate(-0.5), probTolerance)
}

func TestPeakWindows_Uniform(t *testing.T) {
	curve := domain.UniformCurve()

	windows, err := curve.PeakWindows(120, 3)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	seen := map[int]bool{}
	for _, w := range windows {
		assert.InDelta(t, uniformProb(), w.MeanProbability, probTolerance)
		assert.False(t, seen[w.StartSlot])
		seen[w.StartSlot] = true
	}
}

func TestPeakWindows_FindsPeakAndWraps(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	// Mass centered on the week boundary: best 120-minute window starts
	// an hour before Monday 00:00.
	for i := 10020; i < domain.MinutesPerWeek; i++ {
		masses[i] = 1.0
	}
	for i := 0; i < 60; i++ {
		masses[i] = 1.0
	}
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	windows, err := curve.PeakWindows(120, 1)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, 10020, windows[0].StartSlot)
	assert.InDelta(t, 1.0/120.0, windows[0].MeanProbability, probTolerance)
}

func TestPeakWindows_TieBreaksOnLowestStart(t *testing.T) {
	windows, err := domain.UniformCurve().PeakWindows(60, 2)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, 0, windows[0].StartSlot)
	assert.Equal(t, 1, windows[1].StartSlot)
}

func TestPeakWindows_InvalidWindow(t *testing.T) {
	_, err := domain.UniformCurve().PeakWindows(0, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestSharpness(t *testing.T) {
	assert.InDelta(t, 0.0, domain.UniformCurve().Sharpness(), probTolerance)

	spike := make([]float64, domain.MinutesPerWeek)
	spike[300] = 1.0
	curve, err := domain.NewEngagementCurve(spike)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, curve.Sharpness(), probTolerance)
}

func TestPeakSlot_TieBreaksLow(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	masses[500] = 1.0
	masses[9000] = 1.0
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	assert.Equal(t, 500, curve.PeakSlot())
}

func TestProbabilities_ReturnsCopy(t *testing.T) {
	curve := domain.UniformCurve()
	probs := curve.Probabilities()
	probs[0] = 99.0

	assert.InDelta(t, uniformProb(), curve.ProbabilityAt(0), probTolerance)
}
