package meter

import "time"

// Frame is the output of FrameProcessor for one capture block.
type Frame struct {
	Sample FrameSample

	// Effective is the sampled time attributed to this frame. After a gap it
	// is the nominal frame interval instead of the real elapsed time.
	Effective time.Duration

	// Gap is the elapsed time since the previous frame when it exceeded the
	// gap threshold, zero otherwise.
	Gap time.Duration

	Warmup bool // discarded while capture settles
	Valid  bool // usable for window statistics
}

// Above reports whether the frame is above the scoring threshold.
func (f Frame) Above() bool {
	return f.Sample.Level > ScoreThresholdDBFS
}

// FrameProcessor extracts levels from capture blocks and tracks frame timing.
type FrameProcessor struct {
	warmup    int
	remaining int
	last      time.Time
}

// NewFrameProcessor returns a processor that discards the first warmup
// frames after every Reset.
func NewFrameProcessor(warmup int) *FrameProcessor {
	if warmup < 0 {
		warmup = 0
	}
	return &FrameProcessor{warmup: warmup, remaining: warmup}
}

// Reset restarts timing and the warm-up period. Call it when capture starts.
func (p *FrameProcessor) Reset() {
	p.remaining = p.warmup
	p.last = time.Time{}
}

// Process measures one block of samples in [-1, 1] taken at ts.
func (p *FrameProcessor) Process(samples []float32, ts time.Time) Frame {
	rms := RMS(samples)
	f := Frame{
		Sample: FrameSample{
			Timestamp: ts,
			RMS:       rms,
			Level:     LevelFromAmplitude(rms),
			Peak:      Peak(samples),
		},
		Effective: FrameInterval,
	}

	if !p.last.IsZero() {
		elapsed := ts.Sub(p.last)
		switch {
		case elapsed > GapThreshold():
			f.Gap = elapsed
		case elapsed > 0:
			f.Effective = elapsed
		}
	}
	p.last = ts

	if p.remaining > 0 {
		p.remaining--
		f.Warmup = true
		return f
	}

	f.Valid = f.Sample.Level >= InvalidLevelFloor
	return f
}
