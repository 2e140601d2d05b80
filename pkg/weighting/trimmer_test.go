package weighting

import (
	"math"
	"testing"

	psterrors "github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/survey"
)

func frameWithWeights(ws ...float64) *survey.Frame {
	f := &survey.Frame{}
	for _, w := range ws {
		f.Respondents = append(f.Respondents, survey.Respondent{Stratum: "F_18-24", Weight: w})
	}
	return f
}

func TestTrimClampsToBounds(t *testing.T) {
	frame := frameWithWeights(0.1, 0.3, 1, 4.9, 8)

	trimmed, report, err := Trim(frame, 0.3, 5)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}

	want := []float64{0.3, 0.3, 1, 4.9, 5}
	got := trimmed.Weights()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("weight[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	for _, w := range got {
		if w < 0.3 || w > 5 {
			t.Errorf("weight %v outside [0.3, 5]", w)
		}
	}

	if report.Before.Min != 0.1 || report.Before.Max != 8 {
		t.Errorf("Before = %+v", report.Before)
	}
	if report.After.Min != 0.3 || report.After.Max != 5 {
		t.Errorf("After = %+v", report.After)
	}
}

func TestTrimIdempotent(t *testing.T) {
	frame := frameWithWeights(0.05, 0.7, 1.3, 6, 12)

	once, _, err := Trim(frame, 0.3, 5)
	if err != nil {
		t.Fatalf("first Trim: %v", err)
	}
	twice, report, err := Trim(once, 0.3, 5)
	if err != nil {
		t.Fatalf("second Trim: %v", err)
	}

	a, b := once.Weights(), twice.Weights()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("weight[%d] changed on re-trim: %v -> %v", i, a[i], b[i])
		}
	}
	if report.Before != report.After {
		t.Errorf("re-trim summaries differ: before=%+v after=%+v", report.Before, report.After)
	}
}

func TestTrimDoesNotRenormalize(t *testing.T) {
	// Total mass drifts from the respondent count after trimming; that is
	// part of the contract, not a bug to fix.
	frame := frameWithWeights(10, 10, 1, 1)

	trimmed, _, err := Trim(frame, 0.3, 5)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if got := trimmed.TotalWeight(); got != 12 {
		t.Errorf("TotalWeight = %v, want 12 (5+5+1+1)", got)
	}
	if trimmed.TotalWeight() == float64(trimmed.Len()) {
		t.Error("total weight should not be renormalized to n")
	}
}

func TestTrimInvalidBounds(t *testing.T) {
	frame := frameWithWeights(1)

	tests := []struct {
		lower, upper float64
	}{
		{1, 5},     // lower not < 1
		{0.3, 1},   // upper not > 1
		{5, 0.3},   // inverted
		{1.2, 3.4}, // both above 1
	}

	for _, tt := range tests {
		_, _, err := Trim(frame, tt.lower, tt.upper)
		if !psterrors.Is(err, psterrors.ErrCodeInvalidBounds) {
			t.Errorf("Trim(%g, %g) code = %v, want %v",
				tt.lower, tt.upper, psterrors.GetCode(err), psterrors.ErrCodeInvalidBounds)
		}
	}
}

func TestSummarize(t *testing.T) {
	// Quartiles use the median-of-halves convention.
	s := Summarize([]float64{0.5, 1, 2, 4})

	if s.Min != 0.5 || s.Max != 4 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Median != 1.5 {
		t.Errorf("median = %v, want 1.5", s.Median)
	}
	if s.Q1 != 0.75 || s.Q3 != 3 {
		t.Errorf("quartiles = %v/%v, want 0.75/3", s.Q1, s.Q3)
	}
	if math.Abs(s.Mean-1.875) > 1e-12 {
		t.Errorf("mean = %v, want 1.875", s.Mean)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero value", s)
	}
}
