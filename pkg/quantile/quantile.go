// Package quantile recovers outcome distributions from a weighted frame.
//
// The estimator evaluates the weighted empirical quantile function at a
// grid of evenly spaced probability levels and tabulates the results: with
// enough grid points, the share of levels landing on each discrete outcome
// code approximates its weighted probability mass. This is how a continuous
// quantile machine recovers a discrete weighted histogram.
//
// Ties between discrete codes are resolved with step-function semantics:
// Q(p) is the smallest value whose cumulative normalized weight reaches p.
// No fractional interpolation between codes is ever invented, which keeps
// the estimate reproducible across runs.
package quantile

import (
	"sort"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/survey"
)

// DefaultPoints is the default probability-grid size: 201 levels at step
// 0.005 across [0, 1].
const DefaultPoints = 201

// Point is one (outcome value, estimated mass) pair.
type Point struct {
	Value float64 `json:"value"`
	Mass  float64 `json:"mass"`
}

// Table is an outcome distribution: ordered by value, masses summing to 1.
type Table []Point

// Mean returns the expected outcome value under the table's masses.
func (t Table) Mean() float64 {
	var m float64
	for _, p := range t {
		m += p.Value * p.Mass
	}
	return m
}

// TotalMass returns the sum of all masses; 1 for a well-formed table.
func (t Table) TotalMass() float64 {
	var m float64
	for _, p := range t {
		m += p.Mass
	}
	return m
}

// weightedObs is a sortable (value, weight) pair set.
type weightedObs struct {
	values  []float64
	weights []float64
}

func (o *weightedObs) Len() int           { return len(o.values) }
func (o *weightedObs) Less(i, j int) bool { return o.values[i] < o.values[j] }
func (o *weightedObs) Swap(i, j int) {
	o.values[i], o.values[j] = o.values[j], o.values[i]
	o.weights[i], o.weights[j] = o.weights[j], o.weights[i]
}

// Estimate recovers the weighted distribution of one outcome field from
// the frame, evaluating the weighted quantile function at numPoints
// evenly spaced levels in [0, 1] and normalizing the tabulation by the
// point count. The frame is read-only here; concurrent Estimate calls on
// different fields over the same finalized frame are safe.
func Estimate(frame *survey.Frame, field string, numPoints int) (Table, error) {
	if numPoints < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need at least 2 quantile points, got %d", numPoints)
	}
	if frame.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot estimate from an empty frame")
	}

	obs := &weightedObs{
		values:  frame.Outcomes(field),
		weights: frame.Weights(),
	}
	sort.Stable(obs)

	var total float64
	for _, w := range obs.weights {
		total += w
	}
	if total <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "frame has no positive weight mass")
	}

	// Cumulative normalized weight per sorted observation.
	cum := make([]float64, len(obs.weights))
	var run float64
	for i, w := range obs.weights {
		run += w
		cum[i] = run / total
	}

	// Walk the probability grid and the cumulative curve in lockstep;
	// both are non-decreasing so a single pass suffices.
	hits := make(map[float64]int)
	idx := 0
	for j := 0; j < numPoints; j++ {
		p := float64(j) / float64(numPoints-1)
		for idx < len(cum)-1 && cum[idx] < p {
			idx++
		}
		hits[obs.values[idx]]++
	}

	out := make(Table, 0, len(hits))
	for v, n := range hits {
		out = append(out, Point{Value: v, Mass: float64(n) / float64(numPoints)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

// Unweighted computes the plain empirical distribution of a value set,
// each observation carrying mass 1/n. Used for the reference survey's
// side of the comparison, independently of any weighting.
func Unweighted(values []float64) (Table, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot estimate from no observations")
	}

	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}

	out := make(Table, 0, len(counts))
	for v, n := range counts {
		out = append(out, Point{Value: v, Mass: float64(n) / float64(len(values))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}
