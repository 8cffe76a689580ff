package meter

import (
	"time"

	"github.com/google/uuid"
)

// SliceAggregator accumulates frames over one window and produces a
// SliceSummary when the window closes.
type SliceAggregator struct {
	start time.Time
	last  time.Time

	levels    []float64
	sampled   time.Duration
	over      time.Duration
	frames    int
	gaps      int
	maxGap    time.Duration
	segments  SegmentDetector
	score     float64
	breakdown ScoreBreakdown

	newID func() string
}

// NewSliceAggregator returns an aggregator whose first window starts at start.
func NewSliceAggregator(start time.Time) *SliceAggregator {
	a := &SliceAggregator{
		levels: make([]float64, 0, int(WindowDuration/FrameInterval)),
		newID:  uuid.NewString,
	}
	a.Reset(start)
	return a
}

// Reset discards window state and starts a new window at start. The interim
// score is seeded to a perfect value.
func (a *SliceAggregator) Reset(start time.Time) {
	a.start = start
	a.last = start
	a.levels = a.levels[:0]
	a.sampled = 0
	a.over = 0
	a.frames = 0
	a.gaps = 0
	a.maxGap = 0
	a.segments.Reset()
	a.score = PerfectScore
	a.breakdown = PerfectBreakdown()
}

// Start returns the start of the current window.
func (a *SliceAggregator) Start() time.Time {
	return a.start
}

// ValidFrames returns the number of frames contributing to statistics.
func (a *SliceAggregator) ValidFrames() int {
	return a.frames
}

// Add folds a processed frame into the window. Warm-up frames are ignored.
func (a *SliceAggregator) Add(f Frame) {
	if f.Warmup {
		return
	}
	if f.Sample.Timestamp.After(a.last) {
		a.last = f.Sample.Timestamp
	}
	if f.Gap > 0 {
		a.gaps++
		if f.Gap > a.maxGap {
			a.maxGap = f.Gap
		}
	}

	// Invalid frames are below threshold by construction and still close
	// an open burst.
	a.segments.Observe(f.Sample.Level, f.Sample.Timestamp)

	if !f.Valid {
		return
	}
	a.frames++
	a.levels = append(a.levels, f.Sample.Level)
	a.sampled += f.Effective
	if f.Above() {
		a.over += f.Effective
	}
}

// Due reports whether the window has reached its nominal length at now.
func (a *SliceAggregator) Due(now time.Time) bool {
	return now.Sub(a.start) >= WindowDuration
}

// Stats computes the raw statistics of the current window.
func (a *SliceAggregator) Stats() SliceRawStats {
	var ratio float64
	if a.sampled > 0 {
		ratio = clamp01(float64(a.over) / float64(a.sampled))
	}
	return SliceRawStats{
		AvgLevel:           EnergyAverage(a.levels),
		MaxLevel:           MaxOf(a.levels),
		P50Level:           Quantile(a.levels, 0.5),
		P95Level:           Quantile(a.levels, 0.95),
		OverThresholdRatio: ratio,
		SegmentCount:       a.segments.Count(),
		SampledDuration:    a.sampled,
		GapCount:           a.gaps,
		MaxGap:             a.maxGap,
	}
}

// Interim recomputes the running score over the data seen so far. Until a
// valid frame exists the perfect seed is returned.
func (a *SliceAggregator) Interim() (float64, ScoreBreakdown) {
	if a.frames > 0 {
		a.score, a.breakdown = Score(a.Stats(), a.last.Sub(a.start))
	}
	return a.score, a.breakdown
}

// Finalize closes the window at end and starts the next one there. It
// returns false when the window held no valid frames, in which case nothing
// is emitted. Calibration only affects the display statistics.
func (a *SliceAggregator) Finalize(end time.Time, cal Calibration) (SliceSummary, bool) {
	defer a.Reset(end)

	if a.frames == 0 {
		return SliceSummary{}, false
	}

	raw := a.Stats()
	physical := end.Sub(a.start)
	score, breakdown := Score(raw, physical)

	return SliceSummary{
		ID:         a.newID(),
		Start:      a.start,
		End:        end,
		FrameCount: a.frames,
		Raw:        raw,
		Display: SliceDisplayStats{
			AvgDisplayLevel: cal.DisplayLevel(raw.AvgLevel),
			P95DisplayLevel: cal.DisplayLevel(raw.P95Level),
		},
		Score:     score,
		Breakdown: breakdown,
	}, true
}
