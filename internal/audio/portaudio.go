package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/focusmeter/internal/config"
)

type portAudioCapture struct {
	log zerolog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new PortAudio-based audio capture
func New(log zerolog.Logger) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{log: log}, nil
}

func findInputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, deviceID)
}

func (p *portAudioCapture) Start(ctx context.Context, cfg config.AudioConfig, out chan<- Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return errors.New("audio capture already running")
	}

	device, err := findInputDevice(cfg.DeviceID)
	if err != nil {
		return err
	}

	channels := inputChannels(cfg.Channels, device.MaxInputChannels)
	frames := cfg.FramesPerBuffer

	// Interleaved float32 buffer, downmixed to mono after every read.
	buffer := make([]float32, frames*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: frames,
	}, buffer)
	if err != nil {
		return deviceError("open", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return deviceError("start", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.stream = stream
	p.cancel = cancel
	p.done = done

	p.log.Info().
		Str("device", device.Name).
		Int("sample_rate", cfg.SampleRate).
		Int("frames_per_buffer", frames).
		Int("channels", channels).
		Msg("Audio capture started")

	// Read loop
	go func() {
		defer close(done)
		defer stream.Close()
		for {
			if ctx.Err() != nil {
				return
			}
			if err := stream.Read(); err != nil {
				if errors.Is(err, portaudio.InputOverflowed) {
					p.log.Debug().Msg("Input overflowed, continuing")
				} else {
					if ctx.Err() != nil {
						return
					}
					p.log.Error().Err(err).Msg("Audio read failed")
					select {
					case out <- readFailure(time.Now(), err):
					case <-ctx.Done():
					}
					return
				}
			}

			block := Block{
				Timestamp: time.Now(),
				Samples:   downmixInterleaved(buffer, channels, frames),
			}

			select {
			case out <- block:
			case <-ctx.Done():
				return
			default:
				// Drop if channel full (backpressure)
			}
		}
	}()

	return nil
}

func (p *portAudioCapture) Stop() error {
	p.mu.Lock()
	stream, cancel, done := p.stream, p.cancel, p.done
	p.stream, p.cancel, p.done = nil, nil, nil
	p.mu.Unlock()

	if stream == nil {
		return nil
	}
	cancel()
	err := stream.Stop()
	<-done
	p.log.Info().Msg("Audio capture stopped")
	return err
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:       d.Name,
				Name:     d.Name,
				Channels: d.MaxInputChannels,
				Default:  d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	err := p.Stop()
	portaudio.Terminate()
	return err
}

// inputChannels clamps the requested channel count to what the device
// offers. Zero or negative requests mean mono.
func inputChannels(requested, available int) int {
	if requested <= 0 {
		requested = 1
	}
	if available > 0 && requested > available {
		requested = available
	}
	return requested
}

func deviceError(action string, err error) error {
	return fmt.Errorf("%w: failed to %s audio stream: %v", ErrDeviceUnavailable, action, err)
}

// readFailure is the terminal block sent when the stream stops delivering.
func readFailure(at time.Time, err error) Block {
	return Block{Timestamp: at, Err: fmt.Errorf("audio read: %w", err)}
}

// downmixInterleaved averages interleaved channels into a new mono slice.
func downmixInterleaved(input []float32, channels, frames int) []float32 {
	if channels <= 1 {
		out := make([]float32, frames)
		copy(out, input)
		return out
	}

	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += input[base+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
