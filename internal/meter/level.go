package meter

import "math"

// LevelFromAmplitude converts a linear amplitude to dBFS, clamped to the
// physical range. Silence maps to MinLevel.
func LevelFromAmplitude(amp float64) float64 {
	if math.IsNaN(amp) {
		return MinLevel
	}
	return ClampLevel(20 * math.Log10(math.Max(amp, Epsilon)))
}

// AmplitudeFromLevel is the inverse of LevelFromAmplitude.
func AmplitudeFromLevel(level float64) float64 {
	return math.Pow(10, level/20)
}

// PowerFromLevel converts a level to the power domain.
func PowerFromLevel(level float64) float64 {
	return math.Pow(10, level/10)
}

// ClampLevel limits a level to [MinLevel, MaxLevel].
func ClampLevel(level float64) float64 {
	return clamp(level, MinLevel, MaxLevel)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// RMS returns sqrt(mean(x²)) of a block. An empty block has zero RMS.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns max(|x|) of a block.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}
