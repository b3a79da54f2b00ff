package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrCurveLength   = errors.New("curve requires exactly 10080 slot masses")
	ErrNegativeMass  = errors.New("curve masses must be non-negative")
	ErrInvalidWindow = errors.New("window length must be in [1, 10080]")
)

// curvePool recycles week-length buffers; one is allocated per decision
// request and the grid is large enough to make that churn visible.
var curvePool = sync.Pool{
	New: func() any {
		buf := make([]float64, MinutesPerWeek)
		return &buf
	},
}

// AcquireSlotBuffer returns a zeroed week-length working buffer.
func AcquireSlotBuffer() []float64 {
	buf := *(curvePool.Get().(*[]float64))
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// ReleaseSlotBuffer returns a working buffer to the pool.
func ReleaseSlotBuffer(buf []float64) {
	if len(buf) != MinutesPerWeek {
		return
	}
	curvePool.Put(&buf)
}

// EngagementCurve is a normalized probability mass function over the
// 10,080-slot week grid. It is immutable after construction and treats
// the grid as circular: slot 10080+k reads the same as slot k.
type EngagementCurve struct {
	probs []float64
}

// NewEngagementCurve normalizes the given slot masses into a curve.
// A zero-mass input falls back to the uniform distribution; this is the
// only place a uniform fallback is permitted.
func NewEngagementCurve(masses []float64) (*EngagementCurve, error) {
	if len(masses) != MinutesPerWeek {
		return nil, fmt.Errorf("%w: got %d", ErrCurveLength, len(masses))
	}

	total := 0.0
	for _, m := range masses {
		if m < 0 {
			return nil, ErrNegativeMass
		}
		total += m
	}

	probs := make([]float64, MinutesPerWeek)
	if total > 0 {
		for i, m := range masses {
			probs[i] = m / total
		}
	} else {
		uniform := 1.0 / MinutesPerWeek
		for i := range probs {
			probs[i] = uniform
		}
	}

	return &EngagementCurve{probs: probs}, nil
}

// UniformCurve returns the flat distribution over the week grid.
func UniformCurve() *EngagementCurve {
	probs := make([]float64, MinutesPerWeek)
	uniform := 1.0 / MinutesPerWeek
	for i := range probs {
		probs[i] = uniform
	}
	return &EngagementCurve{probs: probs}
}

// ProbabilityAt returns the exact mass at a slot, taken mod 10080.
func (c *EngagementCurve) ProbabilityAt(slot int) float64 {
	return c.probs[((slot%MinutesPerWeek)+MinutesPerWeek)%MinutesPerWeek]
}

// Interpolate evaluates the curve at a fractional minute offset using
// periodic Catmull-Rom interpolation. Offsets near the week boundary
// blend across it rather than clamping.
func (c *EngagementCurve) Interpolate(offset float64) float64 {
	offset = math.Mod(offset, MinutesPerWeek)
	if offset < 0 {
		offset += MinutesPerWeek
	}

	i1 := int(math.Floor(offset))
	t := offset - float64(i1)

	p0 := c.ProbabilityAt(i1 - 1)
	p1 := c.ProbabilityAt(i1)
	p2 := c.ProbabilityAt(i1 + 1)
	p3 := c.ProbabilityAt(i1 + 2)

	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// PeakWindow is a candidate send window of consecutive slots.
type PeakWindow struct {
	StartSlot       int
	MeanProbability float64
}

// PeakWindows ranks every window of windowMinutes consecutive slots
// (wrapping past the week boundary) by mean probability and returns the
// top k, ties broken by the lowest starting slot. The per-window sums are
// maintained with a circular running sum, keeping the scan linear.
func (c *EngagementCurve) PeakWindows(windowMinutes, topK int) ([]PeakWindow, error) {
	if windowMinutes < 1 || windowMinutes > MinutesPerWeek {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowMinutes)
	}
	if topK < 1 {
		return nil, nil
	}

	sum := 0.0
	for i := 0; i < windowMinutes; i++ {
		sum += c.probs[i]
	}

	windows := make([]PeakWindow, MinutesPerWeek)
	span := float64(windowMinutes)
	for start := 0; start < MinutesPerWeek; start++ {
		windows[start] = PeakWindow{StartSlot: start, MeanProbability: sum / span}
		// Slide: drop the leading slot, pick up the wrapped trailing one.
		sum -= c.probs[start]
		sum += c.probs[(start+windowMinutes)%MinutesPerWeek]
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].MeanProbability != windows[j].MeanProbability {
			return windows[i].MeanProbability > windows[j].MeanProbability
		}
		return windows[i].StartSlot < windows[j].StartSlot
	})

	if topK > len(windows) {
		topK = len(windows)
	}
	return windows[:topK], nil
}

// PeakSlot returns the slot holding the global maximum, ties broken by
// the lowest slot index.
func (c *EngagementCurve) PeakSlot() int {
	best := 0
	for i := 1; i < MinutesPerWeek; i++ {
		if c.probs[i] > c.probs[best] {
			best = i
		}
	}
	return best
}

// Sharpness scores how peaked the distribution is: one minus the Shannon
// entropy normalized by ln(10080). Uniform scores 0; a single spike
// approaches 1.
func (c *EngagementCurve) Sharpness() float64 {
	entropy := 0.0
	for _, p := range c.probs {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	return 1.0 - entropy/math.Log(MinutesPerWeek)
}

// Probabilities returns a copy of the underlying mass array.
func (c *EngagementCurve) Probabilities() []float64 {
	out := make([]float64, MinutesPerWeek)
	copy(out, c.probs)
	return out
}
