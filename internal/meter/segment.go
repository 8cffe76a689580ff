package meter

import "time"

// SegmentDetector counts discrete noise events within one window. Bursts
// that start less than MergeGap after the previous burst ended are merged
// into it.
type SegmentDetector struct {
	above    bool
	seen     bool // at least one rising edge in this window
	lastFall time.Time
	segments int
}

// Reset clears the detector for a new window.
func (d *SegmentDetector) Reset() {
	*d = SegmentDetector{}
}

// Observe feeds one frame's level at ts.
func (d *SegmentDetector) Observe(level float64, ts time.Time) {
	above := level > ScoreThresholdDBFS
	switch {
	case above && !d.above:
		if !d.seen || ts.Sub(d.lastFall) >= MergeGap {
			d.segments++
		}
		d.seen = true
	case !above && d.above:
		d.lastFall = ts
	}
	d.above = above
}

// Count returns the number of segments seen so far.
func (d *SegmentDetector) Count() int {
	return d.segments
}

// Above reports whether the last observed frame was above threshold.
func (d *SegmentDetector) Above() bool {
	return d.above
}
