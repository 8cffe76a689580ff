package meter

import (
	"math"
	"time"
)

// Score maps window statistics to a 0..100 focus score. physical is the
// wall-clock length of the window.
//
// Three saturating penalties are combined with fixed weights:
//   - sustained: median level above threshold, full at +6 dB
//   - time: share of sampled time above threshold, full at 30%
//   - segment: segments per minute, full at MaxSegmentsPerMinute
func Score(stats SliceRawStats, physical time.Duration) (float64, ScoreBreakdown) {
	params := FixedParams()

	sustained := clamp01((stats.P50Level - params.ScoreThresholdDBFS) / params.SustainedRangeDB)
	timeP := clamp01(stats.OverThresholdRatio / params.TimeRatioSaturate)

	effective := stats.SampledDuration
	if effective <= 0 {
		effective = physical
	}
	minutes := math.Max(Epsilon, effective.Minutes())
	perMinute := float64(stats.SegmentCount) / minutes
	segment := clamp01(perMinute / params.MaxSegmentsPerMinute)

	total := params.WeightSustained*sustained + params.WeightTime*timeP + params.WeightSegment*segment

	var coverage float64
	if physical > 0 {
		coverage = clamp01(float64(stats.SampledDuration) / float64(physical))
	}

	score := clamp(roundTenth(PerfectScore*(1-total)), 0, PerfectScore)

	return score, ScoreBreakdown{
		SustainedPenalty:   sustained,
		TimePenalty:        timeP,
		SegmentPenalty:     segment,
		TotalPenalty:       total,
		Params:             params,
		MedianLevel:        stats.P50Level,
		OverThresholdRatio: stats.OverThresholdRatio,
		SegmentCount:       stats.SegmentCount,
		SegmentsPerMinute:  perMinute,
		Minutes:            minutes,
		SampledDuration:    stats.SampledDuration,
		PhysicalDuration:   physical,
		EffectiveDuration:  effective,
		CoverageRatio:      coverage,
	}
}

// PerfectBreakdown is the breakdown reported before any data exists.
func PerfectBreakdown() ScoreBreakdown {
	return ScoreBreakdown{
		Params:      FixedParams(),
		MedianLevel: MinLevel,
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
