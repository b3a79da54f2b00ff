package domain

import (
	"math"
	"time"
)

// BoostedCurve is a base curve with multiplicative hot-path adjustments
// applied. It is deliberately not renormalized: the window search only
// compares relative magnitudes within one curve instance, and confidence
// is always evaluated on the pre-boost base curve.
type BoostedCurve struct {
	curve   *EngagementCurve
	applied []AppliedWeight
}

// ApplyHotPath boosts the probability mass of the next HotPathBoostSpan
// slots by 1 + weight*exp(-minutesSince/15) when the signal fired within
// the recency window. Returns the (possibly unmodified) curve and the
// audit entries recorded in application order.
func ApplyHotPath(base *EngagementCurve, hot HotPath, now time.Time) *BoostedCurve {
	if !hot.Active || hot.Weight <= 0 {
		return &BoostedCurve{curve: base}
	}

	minutesSince := now.Sub(hot.ObservedAt).Minutes()
	if minutesSince < 0 || minutesSince >= HotPathRecencyWindow.Minutes() {
		return &BoostedCurve{curve: base}
	}

	masses := base.Probabilities()
	currentSlot := ToSlot(now)
	for offset := 0; offset < HotPathBoostSpan; offset++ {
		idx := (currentSlot + offset) % MinutesPerWeek
		decay := math.Exp(-float64(offset) / HotPathDecayMinutes)
		masses[idx] *= 1 + hot.Weight*decay
	}

	return &BoostedCurve{
		curve:   &EngagementCurve{probs: masses},
		applied: []AppliedWeight{{Signal: hot.SignalType, Weight: round4(hot.Weight)}},
	}
}

// Curve returns the adjusted curve read by the window search.
func (b *BoostedCurve) Curve() *EngagementCurve { return b.curve }

// AppliedWeights returns the audit entries recorded while boosting.
func (b *BoostedCurve) AppliedWeights() []AppliedWeight { return b.applied }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
