package meter

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func constBlock(n int, v float32) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestLevelFromAmplitudeMonotonicAndBounded(t *testing.T) {
	prev := math.Inf(-1)
	for _, amp := range []float64{0, 1e-9, 1e-6, 1e-4, 0.001, 0.01, 0.1, 0.5, 1, 2} {
		got := LevelFromAmplitude(amp)
		if got < MinLevel || got > MaxLevel {
			t.Errorf("LevelFromAmplitude(%g) = %g, outside [%g, %g]", amp, got, MinLevel, MaxLevel)
		}
		if got < prev {
			t.Errorf("LevelFromAmplitude(%g) = %g, not monotonic (prev %g)", amp, got, prev)
		}
		prev = got
	}
}

func TestLevelFromAmplitudeNonFinite(t *testing.T) {
	tests := []struct {
		name string
		amp  float64
		want float64
	}{
		{"zero", 0, MinLevel},
		{"negative", -1, MinLevel},
		{"nan", math.NaN(), MinLevel},
		{"inf", math.Inf(1), MaxLevel},
		{"full scale", 1, 0},
		{"tenth", 0.1, -20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LevelFromAmplitude(tt.amp)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("LevelFromAmplitude(%g) = %g, want %g", tt.amp, got, tt.want)
			}
		})
	}
}

func TestRMSAndPeak(t *testing.T) {
	block := []float32{0.5, -0.5, 0.5, -0.5}
	if got := RMS(block); !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("RMS = %g, want 0.5", got)
	}
	if got := Peak([]float32{0.1, -0.8, 0.3}); !almostEqual(got, 0.8, 1e-6) {
		t.Errorf("Peak = %g, want 0.8", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %g, want 0", got)
	}
}

func TestFrameProcessorWarmup(t *testing.T) {
	p := NewFrameProcessor(3)
	t0 := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		f := p.Process(constBlock(64, 0.1), t0.Add(time.Duration(i)*FrameInterval))
		if !f.Warmup || f.Valid {
			t.Fatalf("frame %d: Warmup=%v Valid=%v, want warm-up frame", i, f.Warmup, f.Valid)
		}
	}
	f := p.Process(constBlock(64, 0.1), t0.Add(3*FrameInterval))
	if f.Warmup || !f.Valid {
		t.Fatalf("post warm-up frame: Warmup=%v Valid=%v", f.Warmup, f.Valid)
	}
	if f.Gap != 0 {
		t.Errorf("warm-up frames should advance timing, got gap %v", f.Gap)
	}

	p.Reset()
	if f := p.Process(constBlock(64, 0.1), t0.Add(10*time.Second)); !f.Warmup {
		t.Error("Reset should restart warm-up")
	}
}

func TestFrameProcessorInvalidFloor(t *testing.T) {
	p := NewFrameProcessor(0)
	f := p.Process(constBlock(64, 0), time.Unix(0, 0))
	if f.Valid {
		t.Error("silent frame should be invalid")
	}
	if f.Sample.Level != MinLevel {
		t.Errorf("silent level = %g, want %g", f.Sample.Level, MinLevel)
	}
	if f.Effective != FrameInterval {
		t.Errorf("first frame effective = %v, want %v", f.Effective, FrameInterval)
	}
}

func TestFrameProcessorGap(t *testing.T) {
	p := NewFrameProcessor(0)
	t0 := time.Unix(2000, 0)

	p.Process(constBlock(64, 0.1), t0)
	f := p.Process(constBlock(64, 0.1), t0.Add(40*time.Millisecond))
	if f.Gap != 0 || f.Effective != 40*time.Millisecond {
		t.Errorf("regular frame: gap=%v effective=%v", f.Gap, f.Effective)
	}

	f = p.Process(constBlock(64, 0.1), t0.Add(40*time.Millisecond+1200*time.Millisecond))
	if f.Gap != 1200*time.Millisecond {
		t.Errorf("gap = %v, want 1.2s", f.Gap)
	}
	if f.Effective != FrameInterval {
		t.Errorf("post-gap effective = %v, want %v", f.Effective, FrameInterval)
	}
}

func TestGapThreshold(t *testing.T) {
	if got := GapThreshold(); got != time.Second {
		t.Errorf("GapThreshold() = %v, want 1s", got)
	}
}
