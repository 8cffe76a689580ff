package meter

import (
	"testing"
	"time"
)

func validFrame(ts time.Time, level float64, effective time.Duration) Frame {
	return Frame{
		Sample:    FrameSample{Timestamp: ts, Level: level, RMS: AmplitudeFromLevel(level)},
		Effective: effective,
		Valid:     level >= InvalidLevelFloor,
	}
}

func TestSliceAggregatorEmptyWindowDiscarded(t *testing.T) {
	t0 := time.Unix(5000, 0)
	a := NewSliceAggregator(t0)

	// Silent frames only: nothing valid.
	for i := 0; i < 10; i++ {
		ts := t0.Add(time.Duration(i) * FrameInterval)
		a.Add(Frame{Sample: FrameSample{Timestamp: ts, Level: MinLevel}, Effective: FrameInterval})
	}

	end := t0.Add(WindowDuration)
	if _, ok := a.Finalize(end, DefaultCalibration()); ok {
		t.Fatal("window without valid frames must not produce a summary")
	}
	if a.Start() != end {
		t.Errorf("next window start = %v, want %v", a.Start(), end)
	}
	if a.ValidFrames() != 0 {
		t.Error("state should be reset")
	}
	if score, _ := a.Interim(); score != PerfectScore {
		t.Errorf("interim after reset = %v, want perfect seed", score)
	}
}

func TestSliceAggregatorInterimSeed(t *testing.T) {
	a := NewSliceAggregator(time.Unix(0, 0))
	score, b := a.Interim()
	if score != PerfectScore {
		t.Errorf("seed score = %v", score)
	}
	if b.Params != FixedParams() {
		t.Error("seed breakdown should carry the fixed params")
	}
}

func TestSliceAggregatorGapAccounting(t *testing.T) {
	p := NewFrameProcessor(0)
	t0 := time.Unix(7000, 0)
	a := NewSliceAggregator(t0)

	ts := t0
	for i := 0; i < 5; i++ {
		a.Add(p.Process(constBlock(128, 0.01), ts))
		ts = ts.Add(FrameInterval)
	}
	before := a.Stats().SampledDuration

	ts = ts.Add(-FrameInterval).Add(1200 * time.Millisecond)
	a.Add(p.Process(constBlock(128, 0.01), ts))

	stats := a.Stats()
	if stats.GapCount != 1 {
		t.Errorf("GapCount = %d, want 1", stats.GapCount)
	}
	if stats.MaxGap != 1200*time.Millisecond {
		t.Errorf("MaxGap = %v, want 1.2s", stats.MaxGap)
	}
	if got := stats.SampledDuration - before; got != FrameInterval {
		t.Errorf("post-gap contribution = %v, want %v", got, FrameInterval)
	}
}

func TestSliceAggregatorFinalize(t *testing.T) {
	t0 := time.Unix(10000, 0)
	a := NewSliceAggregator(t0)

	// 600 frames over 30s with a one-second burst every 4s.
	var ts time.Time
	for i := 0; i < 600; i++ {
		ts = t0.Add(time.Duration(i) * FrameInterval)
		level := -60.0
		if (i/20)%4 == 0 {
			level = -35
		}
		a.Add(validFrame(ts, level, FrameInterval))
	}
	if !a.Due(t0.Add(WindowDuration)) {
		t.Fatal("window should be due after 30s")
	}
	if a.Due(t0.Add(WindowDuration - time.Millisecond)) {
		t.Fatal("window should not be due before 30s")
	}

	cal := Calibration{BaselineLevel: 40, BaselineAmplitude: AmplitudeFromLevel(-60)}
	end := t0.Add(WindowDuration)
	s, ok := a.Finalize(end, cal)
	if !ok {
		t.Fatal("expected a summary")
	}
	if s.ID == "" {
		t.Error("summary should have an identity")
	}
	if s.FrameCount != 600 {
		t.Errorf("FrameCount = %d, want 600", s.FrameCount)
	}
	if s.Raw.SegmentCount != 8 {
		t.Errorf("SegmentCount = %d, want 8", s.Raw.SegmentCount)
	}
	if !almostEqual(s.Raw.OverThresholdRatio, 160.0/600, 1e-9) {
		t.Errorf("OverThresholdRatio = %g, want %g", s.Raw.OverThresholdRatio, 160.0/600)
	}
	if !almostEqual(s.Raw.P50Level, -60, 1e-9) {
		t.Errorf("P50Level = %g, want -60", s.Raw.P50Level)
	}
	if !almostEqual(s.Raw.MaxLevel, -35, 1e-9) {
		t.Errorf("MaxLevel = %g, want -35", s.Raw.MaxLevel)
	}
	if s.Raw.SampledDuration != WindowDuration {
		t.Errorf("SampledDuration = %v", s.Raw.SampledDuration)
	}
	if !almostEqual(s.Display.P95DisplayLevel, cal.DisplayLevel(s.Raw.P95Level), 1e-9) {
		t.Errorf("P95DisplayLevel = %g", s.Display.P95DisplayLevel)
	}

	// Calibration must not influence the score.
	a2 := NewSliceAggregator(t0)
	for i := 0; i < 600; i++ {
		level := -60.0
		if (i/20)%4 == 0 {
			level = -35
		}
		a2.Add(validFrame(t0.Add(time.Duration(i)*FrameInterval), level, FrameInterval))
	}
	s2, _ := a2.Finalize(end, Calibration{BaselineLevel: 90, BaselineAmplitude: 1})
	if s2.Score != s.Score || s2.Breakdown.TotalPenalty != s.Breakdown.TotalPenalty {
		t.Errorf("score changed with calibration: %v vs %v", s2.Score, s.Score)
	}
	if s.Score <= 0 || s.Score >= 100 {
		t.Errorf("Score = %v, want a partial penalty", s.Score)
	}
}

func TestSliceAggregatorPartialWindow(t *testing.T) {
	t0 := time.Unix(0, 0)
	a := NewSliceAggregator(t0)
	for i := 0; i < 40; i++ {
		a.Add(validFrame(t0.Add(time.Duration(i)*FrameInterval), -70, FrameInterval))
	}
	s, ok := a.Finalize(t0.Add(2*time.Second), DefaultCalibration())
	if !ok {
		t.Fatal("partial window with valid data should be scored")
	}
	if s.Score != 100 {
		t.Errorf("quiet partial window score = %v, want 100", s.Score)
	}
	if s.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v", s.Duration())
	}
}
