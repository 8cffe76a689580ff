package meter

import "time"

// FrameSample is the measurement of one processed capture block.
type FrameSample struct {
	Timestamp time.Time
	RMS       float64 // linear, 0..1
	Level     float64 // dBFS, [-100, 0]
	Peak      float64
}

// RealtimePoint is one entry of the live display history.
type RealtimePoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Level        float64   `json:"level"`
	DisplayLevel float64   `json:"display_level"`
}

// SliceRawStats are the score-relevant statistics of one window.
type SliceRawStats struct {
	AvgLevel           float64       `json:"avg_level" msgpack:"avg_level"`
	MaxLevel           float64       `json:"max_level" msgpack:"max_level"`
	P50Level           float64       `json:"p50_level" msgpack:"p50_level"`
	P95Level           float64       `json:"p95_level" msgpack:"p95_level"`
	OverThresholdRatio float64       `json:"over_threshold_ratio" msgpack:"over_threshold_ratio"`
	SegmentCount       int           `json:"segment_count" msgpack:"segment_count"`
	SampledDuration    time.Duration `json:"sampled_duration" msgpack:"sampled_duration"`
	GapCount           int           `json:"gap_count" msgpack:"gap_count"`
	MaxGap             time.Duration `json:"max_gap" msgpack:"max_gap"`
}

// SliceDisplayStats are calibrated levels for presentation. They never feed
// back into scoring.
type SliceDisplayStats struct {
	AvgDisplayLevel float64 `json:"avg_display_level" msgpack:"avg_display_level"`
	P95DisplayLevel float64 `json:"p95_display_level" msgpack:"p95_display_level"`
}

// ScoreParams is the frozen parameter set a score was computed with.
type ScoreParams struct {
	ScoreThresholdDBFS   float64       `json:"score_threshold_dbfs" msgpack:"score_threshold_dbfs"`
	MergeGap             time.Duration `json:"merge_gap" msgpack:"merge_gap"`
	MaxSegmentsPerMinute float64       `json:"max_segments_per_minute" msgpack:"max_segments_per_minute"`
	SustainedRangeDB     float64       `json:"sustained_range_db" msgpack:"sustained_range_db"`
	TimeRatioSaturate    float64       `json:"time_ratio_saturate" msgpack:"time_ratio_saturate"`
	WeightSustained      float64       `json:"weight_sustained" msgpack:"weight_sustained"`
	WeightTime           float64       `json:"weight_time" msgpack:"weight_time"`
	WeightSegment        float64       `json:"weight_segment" msgpack:"weight_segment"`
}

// FixedParams returns the compiled-in scoring parameters.
func FixedParams() ScoreParams {
	return ScoreParams{
		ScoreThresholdDBFS:   ScoreThresholdDBFS,
		MergeGap:             MergeGap,
		MaxSegmentsPerMinute: MaxSegmentsPerMinute,
		SustainedRangeDB:     SustainedRangeDB,
		TimeRatioSaturate:    TimeRatioSaturate,
		WeightSustained:      WeightSustained,
		WeightTime:           WeightTime,
		WeightSegment:        WeightSegment,
	}
}

// ScoreBreakdown explains a score: the three penalty coefficients, the
// parameters used and the intermediate values they were derived from.
type ScoreBreakdown struct {
	SustainedPenalty float64     `json:"sustained_penalty" msgpack:"sustained_penalty"`
	TimePenalty      float64     `json:"time_penalty" msgpack:"time_penalty"`
	SegmentPenalty   float64     `json:"segment_penalty" msgpack:"segment_penalty"`
	TotalPenalty     float64     `json:"total_penalty" msgpack:"total_penalty"`
	Params           ScoreParams `json:"params" msgpack:"params"`

	MedianLevel        float64       `json:"median_level" msgpack:"median_level"`
	OverThresholdRatio float64       `json:"over_threshold_ratio" msgpack:"over_threshold_ratio"`
	SegmentCount       int           `json:"segment_count" msgpack:"segment_count"`
	SegmentsPerMinute  float64       `json:"segments_per_minute" msgpack:"segments_per_minute"`
	Minutes            float64       `json:"minutes" msgpack:"minutes"`
	SampledDuration    time.Duration `json:"sampled_duration" msgpack:"sampled_duration"`
	PhysicalDuration   time.Duration `json:"physical_duration" msgpack:"physical_duration"`
	EffectiveDuration  time.Duration `json:"effective_duration" msgpack:"effective_duration"`
	CoverageRatio      float64       `json:"coverage_ratio" msgpack:"coverage_ratio"`
}

// SliceSummary is the finalized record of one window. It is never mutated
// after creation.
type SliceSummary struct {
	ID         string            `json:"id" msgpack:"id"`
	Start      time.Time         `json:"start" msgpack:"start"`
	End        time.Time         `json:"end" msgpack:"end"`
	FrameCount int               `json:"frame_count" msgpack:"frame_count"`
	Raw        SliceRawStats     `json:"raw" msgpack:"raw"`
	Display    SliceDisplayStats `json:"display" msgpack:"display"`
	Score      float64           `json:"score" msgpack:"score"`
	Breakdown  ScoreBreakdown    `json:"breakdown" msgpack:"breakdown"`
}

// Duration returns the physical length of the slice.
func (s SliceSummary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
