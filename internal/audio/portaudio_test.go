package audio

import (
	"errors"
	"testing"
	"time"
)

func TestDownmixInterleavedMono(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}
	got := downmixInterleaved(input, 1, len(input))

	if len(got) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(got))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Fatalf("expected element %d to be %f, got %f", i, input[i], got[i])
		}
	}

	if &got[0] == &input[0] {
		t.Fatal("expected mono result to be copied into a new slice")
	}
}

func TestDownmixInterleavedStereo(t *testing.T) {
	frames := 4
	input := []float32{
		0.0, 1.0,
		0.5, 0.5,
		1.0, 0.0,
		-0.5, 0.5,
	}

	expected := []float32{
		0.5, 0.5, 0.5, 0.0,
	}

	got := downmixInterleaved(input, 2, frames)
	if len(got) != len(expected) {
		t.Fatalf("expected %d frames, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got[i])
		}
	}
}

func TestDownmixInterleavedMoreChannels(t *testing.T) {
	frames := 2
	input := []float32{
		1, 3, 5,
		2, 4, 6,
	}

	expected := []float32{3, 4}

	got := downmixInterleaved(input, 3, frames)
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got[i])
		}
	}
}

func TestInputChannels(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		max       int
		want      int
	}{
		{name: "default is mono", requested: 0, max: 2, want: 1},
		{name: "negative is mono", requested: -3, max: 2, want: 1},
		{name: "within device range", requested: 2, max: 2, want: 2},
		{name: "clamped to device", requested: 6, max: 2, want: 2},
		{name: "unknown device maximum", requested: 2, max: 0, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inputChannels(tt.requested, tt.max); got != tt.want {
				t.Errorf("inputChannels(%d, %d) = %d, want %d", tt.requested, tt.max, got, tt.want)
			}
		})
	}
}

func TestDeviceErrorWrapsUnavailable(t *testing.T) {
	err := deviceError("open", errors.New("device busy"))
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected %v to wrap ErrDeviceUnavailable", err)
	}
	if got, want := err.Error(), ErrDeviceUnavailable.Error()+": failed to open audio stream: device busy"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadFailureBlock(t *testing.T) {
	cause := errors.New("stream stopped")
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	block := readFailure(at, cause)
	if !errors.Is(block.Err, cause) {
		t.Fatalf("expected block error to wrap %v, got %v", cause, block.Err)
	}
	if block.Samples != nil {
		t.Fatalf("expected no samples, got %d", len(block.Samples))
	}
	if !block.Timestamp.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, block.Timestamp)
	}
}
