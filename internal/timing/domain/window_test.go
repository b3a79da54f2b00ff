package domain_test

import (
	"testing"

	"github.com/sendflowr/pulse/internal/timing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotWindow_Contains(t *testing.T) {
	w := domain.NewSlotWindow(600, 700)
	assert.True(t, w.Contains(600))
	assert.True(t, w.Contains(699))
	assert.False(t, w.Contains(700))
	assert.False(t, w.Contains(599))
	assert.Equal(t, 100, w.Size())
	assert.False(t, w.Wraps())
}

func TestSlotWindow_Wrapping(t *testing.T) {
	w := domain.NewSlotWindow(10000, 50)

	assert.True(t, w.Wraps())
	assert.Equal(t, 130, w.Size())
	assert.True(t, w.Contains(10000))
	assert.True(t, w.Contains(10079))
	assert.True(t, w.Contains(0))
	assert.True(t, w.Contains(49))
	assert.False(t, w.Contains(50))
	assert.False(t, w.Contains(9999))
}

func TestSlotWindow_BestSlot(t *testing.T) {
	masses := make([]float64, domain.MinutesPerWeek)
	masses[650] = 2.0
	masses[9000] = 5.0 // Outside the window; must be ignored.
	for i := range masses {
		masses[i] += 0.01
	}
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)

	best, ok := domain.NewSlotWindow(600, 700).BestSlot(curve)
	require.True(t, ok)
	assert.Equal(t, 650, best)
}

func TestSlotWindow_BestSlot_SearchesBothWrapSegments(t *testing.T) {
	w := domain.NewSlotWindow(10000, 50)

	// Peak in the tail segment.
	masses := make([]float64, domain.MinutesPerWeek)
	masses[10040] = 1.0
	curve, err := domain.NewEngagementCurve(masses)
	require.NoError(t, err)
	best, ok := w.BestSlot(curve)
	require.True(t, ok)
	assert.Equal(t, 10040, best)

	// Peak in the head segment.
	masses = make([]float64, domain.MinutesPerWeek)
	masses[25] = 1.0
	curve, err = domain.NewEngagementCurve(masses)
	require.NoError(t, err)
	best, ok = w.BestSlot(curve)
	require.True(t, ok)
	assert.Equal(t, 25, best)
}

func TestSlotWindow_BestSlot_TieBreaksLowestIndex(t *testing.T) {
	// Uniform curve: every slot ties, so the lowest index in the window
	// wins regardless of segment construction order.
	best, ok := domain.NewSlotWindow(10000, 50).BestSlot(domain.UniformCurve())
	require.True(t, ok)
	assert.Equal(t, 0, best)

	best, ok = domain.NewSlotWindow(600, 700).BestSlot(domain.UniformCurve())
	require.True(t, ok)
	assert.Equal(t, 600, best)
}

func TestSlotWindow_BestSlot_EmptyWindow(t *testing.T) {
	w := domain.NewSlotWindow(500, 500)
	// After == Before wraps to the full week, so size is never zero from
	// distinct bounds; an explicitly empty window comes from equal
	// wrapped bounds covering nothing.
	assert.True(t, w.Wraps())
	assert.Equal(t, domain.MinutesPerWeek, w.Size())
}
