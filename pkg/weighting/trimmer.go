package weighting

import (
	"github.com/montanaflynn/stats"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/survey"
)

// Default trim bounds. Typical post-stratification practice caps weights
// at a handful of sample units in either direction.
const (
	DefaultLowerBound = 0.3
	DefaultUpperBound = 5.0
)

// Summary describes a weight distribution. It is a returned, testable
// output of trimming, not a log line.
type Summary struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Report carries the diagnostic summaries of one trim operation.
type Report struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Before Summary `json:"before"`
	After  Summary `json:"after"`
}

// Summarize computes the distribution summary of a weight vector.
// Quartiles follow the median-of-halves convention. Returns the zero
// Summary for an empty vector.
func Summarize(weights []float64) Summary {
	if len(weights) == 0 {
		return Summary{}
	}
	min, _ := stats.Min(weights)
	max, _ := stats.Max(weights)
	mean, _ := stats.Mean(weights)
	q, _ := stats.Quartile(weights)
	return Summary{Min: min, Q1: q.Q1, Median: q.Q2, Mean: mean, Q3: q.Q3, Max: max}
}

// Trim returns a new frame snapshot with every weight clamped into
// [lower, upper], plus a report of the weight distribution before and
// after. Bounds must satisfy lower < 1 < upper.
//
// Trimming is idempotent and deterministic. It does NOT renormalize the
// total weight sum back to the respondent count: after trimming,
// Frame.TotalWeight may drift from Frame.Len, and callers relying on
// population totals must account for that themselves.
func Trim(frame *survey.Frame, lower, upper float64) (*survey.Frame, Report, error) {
	if !(lower < 1 && 1 < upper) {
		return nil, Report{}, errors.New(errors.ErrCodeInvalidBounds,
			"trim bounds must satisfy lower < 1 < upper, got [%g, %g]", lower, upper)
	}

	out := frame.Clone()
	report := Report{Lower: lower, Upper: upper, Before: Summarize(out.Weights())}

	for i := range out.Respondents {
		w := out.Respondents[i].Weight
		if w < lower {
			out.Respondents[i].Weight = lower
		} else if w > upper {
			out.Respondents[i].Weight = upper
		}
	}

	report.After = Summarize(out.Weights())
	return out, report, nil
}
