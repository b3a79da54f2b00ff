package domain

import (
	"math"
	"time"
)

const (
	// DefaultHalfLife is the recency half-life applied to engagement events.
	DefaultHalfLife = 72 * time.Hour
	// DefaultKernelSigma is the circular smoothing sigma in minutes.
	DefaultKernelSigma = 60.0
	// laplaceFloor keeps every slot strictly positive after smoothing.
	laplaceFloor = 0.001
	// hourlySmoothingSigma is the sigma used when expanding hourly histograms.
	hourlySmoothingSigma = 30.0
)

// WeightedEvent is an engagement timestamp with its recency weight.
type WeightedEvent struct {
	Timestamp time.Time
	Weight    float64
}

// RecencyWeight computes the exponential half-life decay weight of an
// event observed at ts, as of now. An event aged exactly one half-life
// contributes half the weight of an event at age zero.
func RecencyWeight(ts, now time.Time, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 1.0
	}
	age := now.Sub(ts).Hours()
	return math.Exp(-age * math.Ln2 / halfLife.Hours())
}

// CurveBuilder constructs engagement curves from event history, hourly
// histograms, or cohort priors. A zero value uses the default half-life
// and kernel sigma.
type CurveBuilder struct {
	HalfLife    time.Duration
	KernelSigma float64
}

// NewCurveBuilder returns a builder with the default parameters.
func NewCurveBuilder() *CurveBuilder {
	return &CurveBuilder{HalfLife: DefaultHalfLife, KernelSigma: DefaultKernelSigma}
}

func (b *CurveBuilder) halfLife() time.Duration {
	if b.HalfLife <= 0 {
		return DefaultHalfLife
	}
	return b.HalfLife
}

func (b *CurveBuilder) sigma() float64 {
	if b.KernelSigma <= 0 {
		return DefaultKernelSigma
	}
	return b.KernelSigma
}

// FromEvents builds a curve by accumulating recency-weighted events into
// their slots, smoothing with a circular Gaussian kernel, and applying a
// small uniform floor before normalizing. An empty history yields the
// uniform curve.
func (b *CurveBuilder) FromEvents(timestamps []time.Time, now time.Time) (*EngagementCurve, error) {
	if len(timestamps) == 0 {
		return UniformCurve(), nil
	}

	masses := AcquireSlotBuffer()
	defer ReleaseSlotBuffer(masses)

	for _, ts := range timestamps {
		masses[ToSlot(ts)] += RecencyWeight(ts, now, b.halfLife())
	}

	smoothed := smoothCircular(masses, b.sigma())
	for i := range smoothed {
		smoothed[i] += laplaceFloor
	}

	return NewEngagementCurve(smoothed)
}

// WeightedEvents exposes the per-event weights that FromEvents would
// accumulate, for explanation output.
func (b *CurveBuilder) WeightedEvents(timestamps []time.Time, now time.Time) []WeightedEvent {
	events := make([]WeightedEvent, 0, len(timestamps))
	for _, ts := range timestamps {
		events = append(events, WeightedEvent{
			Timestamp: ts,
			Weight:    RecencyWeight(ts, now, b.halfLife()),
		})
	}
	return events
}

// CohortHints carries the coarse signals available for cold-start
// identities before any engagement history exists.
type CohortHints struct {
	UniversalID string
	Industry    string
	Timezone    string
}

// ColdStartPrior builds the shaped prior used when an identity has no
// qualifying events: morning and evening bumps plus a mild weekend
// uplift, so cold-start identities are distinguishable from genuinely
// flat engagers.
func (b *CurveBuilder) ColdStartPrior(hints CohortHints) (*EngagementCurve, error) {
	masses := AcquireSlotBuffer()
	defer ReleaseSlotBuffer(masses)

	for i := range masses {
		masses[i] = 1.0
	}

	for day := 0; day < 7; day++ {
		base := day * MinutesPerDay

		// Morning bump, 08:00-10:00.
		for m := 8 * MinutesPerHour; m < 10*MinutesPerHour; m++ {
			masses[base+m] *= 1.4
		}
		// Evening bump, 18:00-21:00.
		for m := 18 * MinutesPerHour; m < 21*MinutesPerHour; m++ {
			masses[base+m] *= 1.6
		}
	}

	// Mild weekend uplift (Sat, Sun).
	for day := 5; day < 7; day++ {
		base := day * MinutesPerDay
		for m := 0; m < MinutesPerDay; m++ {
			masses[base+m] *= 1.1
		}
	}

	return NewEngagementCurve(masses)
}

// FromHourlyHistogram expands a legacy 24-bucket hourly distribution to
// the minute grid: each hour's mass is spread evenly across its 60
// minutes and replicated across all 7 days, then smoothed. Used only
// when minute-level history is unavailable.
func (b *CurveBuilder) FromHourlyHistogram(hourHistogram map[int]float64) (*EngagementCurve, error) {
	masses := AcquireSlotBuffer()
	defer ReleaseSlotBuffer(masses)

	for hour := 0; hour < 24; hour++ {
		mass := hourHistogram[hour] / MinutesPerHour
		if mass == 0 {
			continue
		}
		for day := 0; day < 7; day++ {
			start := day*MinutesPerDay + hour*MinutesPerHour
			for m := 0; m < MinutesPerHour; m++ {
				masses[start+m] = mass
			}
		}
	}

	return NewEngagementCurve(smoothCircular(masses, hourlySmoothingSigma))
}

// smoothCircular convolves the week grid with a Gaussian kernel that
// wraps around the boundary instead of zero-padding.
func smoothCircular(masses []float64, sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		out := make([]float64, len(masses))
		copy(out, masses)
		return out
	}

	kernel := make([]float64, 2*radius+1)
	kernelSum := 0.0
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = w
		kernelSum += w
	}
	for i := range kernel {
		kernel[i] /= kernelSum
	}

	out := make([]float64, len(masses))
	for i, m := range masses {
		if m == 0 {
			continue
		}
		for k := -radius; k <= radius; k++ {
			idx := ((i+k)%MinutesPerWeek + MinutesPerWeek) % MinutesPerWeek
			out[idx] += m * kernel[k+radius]
		}
	}
	return out
}
