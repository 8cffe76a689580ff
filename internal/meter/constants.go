// Package meter implements the acoustic focus pipeline: per-frame level
// extraction, window statistics, noise segment detection, scoring and the
// display calibration path.
package meter

import "time"

// Engine constants. The scoring parameters are fixed so that scores stay
// comparable across sessions; nothing in the settings layer can override them.
const (
	FrameInterval  = 50 * time.Millisecond
	WindowDuration = 30 * time.Second

	ScoreThresholdDBFS   = -50.0
	MergeGap             = 500 * time.Millisecond
	MaxSegmentsPerMinute = 6.0

	// Physical level range in dBFS
	MinLevel = -100.0
	MaxLevel = 0.0

	// Frames quieter than this carry no usable signal
	InvalidLevelFloor = -90.0

	// Floor for log and divide guards
	Epsilon = 1e-12

	MinGap          = 1000 * time.Millisecond
	InterimInterval = 250 * time.Millisecond

	RealtimeHorizon  = 60 * time.Second
	RealtimeCapacity = int(RealtimeHorizon / FrameInterval)

	DefaultWarmupFrames = 10
)

// Penalty model
const (
	SustainedRangeDB  = 6.0
	TimeRatioSaturate = 0.30
	WeightSustained   = 0.4
	WeightTime        = 0.3
	WeightSegment     = 0.3
	PerfectScore      = 100.0
)

// Calibration and display mapping
const (
	CalibrationDuration = 3000 * time.Millisecond

	MinDisplayLevel = 20.0
	MaxDisplayLevel = 100.0

	DefaultBaselineLevel     = 40.0
	DefaultBaselineAmplitude = 0.01 // about -40 dBFS
)

// GapThreshold is the elapsed time between frames above which a capture gap
// is recorded.
func GapThreshold() time.Duration {
	if g := 5 * FrameInterval; g > MinGap {
		return g
	}
	return MinGap
}
