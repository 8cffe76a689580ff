package meter

import (
	"math"
	"sort"
)

// EnergyAverage averages levels in the power domain: 10^(L/10) is averaged
// arithmetically and converted back with 10·log10. An empty input returns
// MinLevel.
func EnergyAverage(levels []float64) float64 {
	if len(levels) == 0 {
		return MinLevel
	}
	var sum float64
	for _, l := range levels {
		sum += PowerFromLevel(l)
	}
	mean := sum / float64(len(levels))
	return ClampLevel(10 * math.Log10(math.Max(mean, Epsilon)))
}

// Quantile estimates the p-quantile of levels in the linear amplitude
// domain (10^(L/20)) using linear interpolation at position (n-1)·p.
//
// Averaging works on power and quantiles on amplitude; both are intended.
func Quantile(levels []float64, p float64) float64 {
	if len(levels) == 0 {
		return MinLevel
	}
	p = clamp01(p)

	amps := make([]float64, len(levels))
	for i, l := range levels {
		amps[i] = AmplitudeFromLevel(l)
	}
	sort.Float64s(amps)

	pos := float64(len(amps)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	amp := amps[lo]
	if hi != lo {
		amp += (amps[hi] - amps[lo]) * (pos - float64(lo))
	}
	return ClampLevel(20 * math.Log10(math.Max(amp, Epsilon)))
}

// MaxOf returns the largest level, or MinLevel for an empty input.
func MaxOf(levels []float64) float64 {
	m := MinLevel
	for _, l := range levels {
		if l > m {
			m = l
		}
	}
	return m
}
