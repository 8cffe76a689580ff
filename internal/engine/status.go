package engine

import (
	"time"

	"github.com/petems/focusmeter/internal/meter"
)

type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusDenied // permission refused or no usable device
	StatusError  // capture fault
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusDenied:
		return "denied"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the engine state handed to listeners.
type Snapshot struct {
	Status       Status
	Error        string
	Level        float64 // dBFS of the latest frame
	DisplayLevel float64
	Realtime     []meter.RealtimePoint // oldest first

	LastSlice        *meter.SliceSummary
	InterimScore     float64
	InterimBreakdown meter.ScoreBreakdown
	WindowStart      time.Time
	WindowFrames     int // valid frames in the current window

	Calibrating bool
	Calibration meter.Calibration
}

// Listener receives engine updates. Implementations must return quickly.
type Listener interface {
	OnSnapshot(Snapshot)
	OnSlice(meter.SliceSummary)
}
