package domain

import "math"

const (
	// coldStartShrink is the flat distrust applied with no history at all.
	coldStartShrink = 0.85
	// shrinkScale controls how fast confidence trusts larger samples.
	shrinkScale = 50.0
	// neutralMidpoint is where low-sample estimates are pulled toward.
	neutralMidpoint = 0.5
)

// Calibrate turns a raw sharpness-times-peak confidence into a
// shrinkage-calibrated score in [0,1]. With no samples the raw value is
// shrunk toward zero; otherwise a logistic factor pulls low-sample
// estimates toward a neutral midpoint.
func Calibrate(rawConfidence float64, sampleSize int) float64 {
	if sampleSize <= 0 {
		return clamp01(rawConfidence * coldStartShrink)
	}

	s := 1.0 / (1.0 + math.Exp(-float64(sampleSize)/shrinkScale))
	return clamp01(rawConfidence*s + neutralMidpoint*(1-s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
