// Package settings holds the user-adjustable control settings and notifies
// subscribers whenever they change.
package settings

import (
	"github.com/petems/focusmeter/internal/meter"
)

// ControlSettings splits into fields the user may change and a fixed block
// that always mirrors the engine constants.
type ControlSettings struct {
	// Caller-mutable
	DisplayBaselineLevel float64 `json:"display_baseline_level"`
	BaselineAmplitude    float64 `json:"baseline_amplitude"`
	ShowRealtime         bool    `json:"show_realtime"`
	ShowBreakdown        bool    `json:"show_breakdown"`

	// Pinned to engine constants on every write and load
	WindowSeconds        float64 `json:"window_seconds"`
	FrameIntervalMs      float64 `json:"frame_interval_ms"`
	ScoreThresholdDBFS   float64 `json:"score_threshold_dbfs"`
	MergeGapMs           float64 `json:"merge_gap_ms"`
	MaxSegmentsPerMinute float64 `json:"max_segments_per_minute"`
}

// Defaults returns the settings used before anything is saved.
func Defaults() ControlSettings {
	s := ControlSettings{
		DisplayBaselineLevel: meter.DefaultBaselineLevel,
		BaselineAmplitude:    meter.DefaultBaselineAmplitude,
		ShowRealtime:         true,
		ShowBreakdown:        false,
	}
	return s.Pinned()
}

// Pinned returns a copy with the fixed fields overwritten by the engine
// constants, whatever the caller supplied.
func (s ControlSettings) Pinned() ControlSettings {
	s.WindowSeconds = meter.WindowDuration.Seconds()
	s.FrameIntervalMs = float64(meter.FrameInterval.Milliseconds())
	s.ScoreThresholdDBFS = meter.ScoreThresholdDBFS
	s.MergeGapMs = float64(meter.MergeGap.Milliseconds())
	s.MaxSegmentsPerMinute = meter.MaxSegmentsPerMinute
	return s
}

// Calibration returns the display mapping described by the settings.
func (s ControlSettings) Calibration() meter.Calibration {
	return meter.Calibration{
		BaselineLevel:     s.DisplayBaselineLevel,
		BaselineAmplitude: s.BaselineAmplitude,
	}
}

// WithCalibration returns a copy carrying the given baseline pair.
func (s ControlSettings) WithCalibration(c meter.Calibration) ControlSettings {
	s.DisplayBaselineLevel = c.BaselineLevel
	s.BaselineAmplitude = c.BaselineAmplitude
	return s
}

// sanitize replaces unusable caller values with defaults and pins the
// fixed block.
func (s ControlSettings) sanitize() ControlSettings {
	if !(s.BaselineAmplitude > 0) || s.BaselineAmplitude > 1 {
		s.BaselineAmplitude = meter.DefaultBaselineAmplitude
	}
	if !(s.DisplayBaselineLevel >= meter.MinDisplayLevel && s.DisplayBaselineLevel <= meter.MaxDisplayLevel) {
		s.DisplayBaselineLevel = meter.DefaultBaselineLevel
	}
	return s.Pinned()
}
