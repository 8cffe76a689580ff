package audio

import (
	"context"
	"errors"
	"time"

	"github.com/petems/focusmeter/internal/config"
)

// ErrDeviceUnavailable is returned when no usable input device can be
// opened. Callers treat it like a permission denial.
var ErrDeviceUnavailable = errors.New("audio: input device unavailable")

// Block is one buffer of mono samples in [-1, 1] read from the device.
// A non-nil Err reports a fault in the stream; Samples is empty then.
type Block struct {
	Timestamp time.Time
	Samples   []float32
	Err       error
}

// Capture defines the interface for audio capture
type Capture interface {
	Start(ctx context.Context, cfg config.AudioConfig, out chan<- Block) error
	Stop() error
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID       string
	Name     string
	Channels int
	Default  bool
}
