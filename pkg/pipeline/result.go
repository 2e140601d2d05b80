package pipeline

import (
	"time"

	"github.com/surveykit/poststrat/pkg/quantile"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/survey"
	"github.com/surveykit/poststrat/pkg/table"
	"github.com/surveykit/poststrat/pkg/weighting"
)

// Result contains the outputs of a pipeline run.
type Result struct {
	// Profile is the population target built from the reference survey.
	Profile strata.Profile

	// Frame is the final target frame, weighted and trimmed.
	Frame *survey.Frame

	// TrimReport carries the weight distribution before and after trimming.
	TrimReport weighting.Report

	// Warnings lists strata whose target frequency was floored to 1.
	Warnings []weighting.DegenerateStratumWarning

	// Weighted holds, per outcome field, the reweighted target distribution.
	Weighted map[string]quantile.Table

	// Reference holds, per outcome field, the reference survey's unweighted
	// distribution, computed independently of the weights.
	Reference map[string]quantile.Table

	// Fields preserves the outcome-field order from the options.
	Fields []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ReferenceCount int // reference records read
	TargetCount    int // target records read
	RetainedCount  int // target respondents surviving filtering
	DroppedCount   int // target records excluded during the frame build

	LoadTime     time.Duration
	ProfileTime  time.Duration
	WeightTime   time.Duration
	EstimateTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ProfileHit bool // whether the population profile came from cache
}

// Rows flattens the result into the comparison output table, field by
// field in option order, weighted rows before reference rows. The order
// is deterministic so result files diff cleanly between runs.
func (r *Result) Rows() []table.ResultRow {
	var out []table.ResultRow
	for _, field := range r.Fields {
		for _, p := range r.Weighted[field] {
			out = append(out, table.ResultRow{
				OutcomeValue:  p.Value,
				EstimatedMass: p.Mass,
				Category:      table.CategoryWeighted,
				Field:         field,
			})
		}
		for _, p := range r.Reference[field] {
			out = append(out, table.ResultRow{
				OutcomeValue:  p.Value,
				EstimatedMass: p.Mass,
				Category:      table.CategoryReference,
				Field:         field,
			})
		}
	}
	return out
}
