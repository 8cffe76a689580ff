package meter

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotActive is returned when calibration is requested while the
	// stream is not running.
	ErrNotActive = errors.New("meter: calibration requires an active stream")

	// ErrInvalidTarget is returned for a target display level outside the
	// display range.
	ErrInvalidTarget = errors.New("meter: calibration target out of range")

	// ErrSilentCalibration means the collected signal was too quiet to
	// derive a baseline from.
	ErrSilentCalibration = errors.New("meter: calibration signal is silent")
)

// Calibration pairs a reference amplitude with the display level it should
// read as.
type Calibration struct {
	BaselineLevel     float64 `json:"baseline_level"`
	BaselineAmplitude float64 `json:"baseline_amplitude"`
}

// DefaultCalibration returns the mapping used before the user calibrates.
func DefaultCalibration() Calibration {
	return Calibration{
		BaselineLevel:     DefaultBaselineLevel,
		BaselineAmplitude: DefaultBaselineAmplitude,
	}
}

// Display maps a linear amplitude to the calibrated display level,
// clamped to [MinDisplayLevel, MaxDisplayLevel].
func (c Calibration) Display(amp float64) float64 {
	ref := math.Max(c.BaselineAmplitude, Epsilon)
	level := c.BaselineLevel + 20*math.Log10(math.Max(amp, Epsilon)/ref)
	return clamp(level, MinDisplayLevel, MaxDisplayLevel)
}

// DisplayLevel maps a dBFS level through the calibration.
func (c Calibration) DisplayLevel(level float64) float64 {
	return c.Display(AmplitudeFromLevel(level))
}

// CalibrationState is the state of the Calibrator.
type CalibrationState int

const (
	CalibrationIdle CalibrationState = iota
	CalibrationCollecting
)

func (s CalibrationState) String() string {
	if s == CalibrationCollecting {
		return "collecting"
	}
	return "idle"
}

// Calibrator collects amplitude readings for CalibrationDuration and binds
// their mean to a user-chosen display level. It only ever touches the
// display mapping.
type Calibrator struct {
	current Calibration

	state  CalibrationState
	target float64
	start  time.Time
	sum    float64
	count  int
}

// NewCalibrator returns an idle calibrator using c for display mapping.
func NewCalibrator(c Calibration) *Calibrator {
	return &Calibrator{current: c}
}

// Current returns the mapping in effect.
func (c *Calibrator) Current() Calibration {
	return c.current
}

// Set replaces the mapping, e.g. after settings change. Ignored while
// collecting so that an in-flight calibration wins.
func (c *Calibrator) Set(cal Calibration) {
	if c.state == CalibrationCollecting {
		return
	}
	c.current = cal
}

// State returns the current state.
func (c *Calibrator) State() CalibrationState {
	return c.state
}

// Begin starts collecting towards target. active reports whether the
// stream is running; calibration is rejected otherwise.
func (c *Calibrator) Begin(target float64, active bool) error {
	if !active {
		return ErrNotActive
	}
	if math.IsNaN(target) || target < MinDisplayLevel || target > MaxDisplayLevel {
		return fmt.Errorf("%w: %.1f not in [%.0f, %.0f]", ErrInvalidTarget, target, MinDisplayLevel, MaxDisplayLevel)
	}
	c.state = CalibrationCollecting
	c.target = target
	c.start = time.Time{}
	c.sum = 0
	c.count = 0
	return nil
}

// Observe feeds one amplitude reading. When the collection period is
// complete it commits the new mapping and returns it with done set. A
// silent collection returns ErrSilentCalibration and keeps the old mapping.
func (c *Calibrator) Observe(amp float64, ts time.Time) (cal Calibration, done bool, err error) {
	if c.state != CalibrationCollecting {
		return c.current, false, nil
	}
	if c.start.IsZero() {
		c.start = ts
	}
	if !math.IsNaN(amp) && !math.IsInf(amp, 0) {
		c.sum += amp
		c.count++
	}
	if ts.Sub(c.start) < CalibrationDuration {
		return c.current, false, nil
	}

	mean := 0.0
	if c.count > 0 {
		mean = c.sum / float64(c.count)
	}
	c.Abort()
	if mean <= Epsilon {
		return c.current, true, ErrSilentCalibration
	}
	c.current = Calibration{BaselineLevel: c.target, BaselineAmplitude: mean}
	return c.current, true, nil
}

// Abort drops any in-progress collection without committing.
func (c *Calibrator) Abort() {
	c.state = CalibrationIdle
	c.start = time.Time{}
	c.sum = 0
	c.count = 0
}
