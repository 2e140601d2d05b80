package weighting

import (
	"errors"
	"math"
	"testing"

	psterrors "github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/survey"
)

// frameWith builds a frame containing count respondents per stratum, in
// map iteration order (order is irrelevant to weighting).
func frameWith(counts map[strata.Stratum]int) *survey.Frame {
	f := &survey.Frame{OutcomeFields: []string{"joking"}}
	for st, n := range counts {
		for i := 0; i < n; i++ {
			f.Respondents = append(f.Respondents, survey.Respondent{
				Stratum:  st,
				Outcomes: map[string]float64{"joking": 1},
				Weight:   1,
			})
		}
	}
	return f
}

func TestWeighTwoStrata(t *testing.T) {
	// Profile {A:0.5, B:0.5}, frame 80/20 => weights 0.625 and 2.5 exactly.
	profile := strata.Profile{"F_18-24": 0.5, "M_25-44": 0.5}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 80, "M_25-44": 20})

	weighted, warnings, err := Weigh(frame, profile, false)
	if err != nil {
		t.Fatalf("Weigh: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	for _, r := range weighted.Respondents {
		switch r.Stratum {
		case "F_18-24":
			if r.Weight != 0.625 {
				t.Fatalf("F_18-24 weight = %v, want 0.625", r.Weight)
			}
		case "M_25-44":
			if r.Weight != 2.5 {
				t.Fatalf("M_25-44 weight = %v, want 2.5", r.Weight)
			}
		}
	}

	// Post-stratification restores the target composition: weighted share
	// of each stratum equals its population proportion.
	var massA float64
	for _, r := range weighted.Respondents {
		if r.Stratum == "F_18-24" {
			massA += r.Weight
		}
	}
	if got := massA / weighted.TotalWeight(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("weighted share of F_18-24 = %v, want 0.5", got)
	}
}

func TestWeighZeroProportionStratum(t *testing.T) {
	// A stratum carried in the profile with proportion 0 has target
	// frequency 0, so its respondents weigh nothing. No mismatch: the
	// stratum is present on both sides, and no neutral fallback applies.
	profile := strata.Profile{"F_18-24": 1.0, "M_65+": 0.0}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 9, "M_65+": 1})

	weighted, warnings, err := Weigh(frame, profile, false)
	if err != nil {
		t.Fatalf("Weigh: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	for _, r := range weighted.Respondents {
		switch r.Stratum {
		case "M_65+":
			if r.Weight != 0 {
				t.Fatalf("M_65+ weight = %v, want 0", r.Weight)
			}
		case "F_18-24":
			// n = 10, F_h = round(1.0*10) = 10, n_h = 9.
			if want := 10.0 / 9; math.Abs(r.Weight-want) > 1e-12 {
				t.Fatalf("F_18-24 weight = %v, want %v", r.Weight, want)
			}
		}
	}
}

func TestWeighIdenticalWithinStratum(t *testing.T) {
	profile := strata.Profile{"F_18-24": 0.7, "M_65+": 0.3}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 13, "M_65+": 7})

	weighted, _, err := Weigh(frame, profile, false)
	if err != nil {
		t.Fatalf("Weigh: %v", err)
	}

	byStratum := make(map[strata.Stratum][]float64)
	for _, r := range weighted.Respondents {
		byStratum[r.Stratum] = append(byStratum[r.Stratum], r.Weight)
	}
	for st, ws := range byStratum {
		for _, w := range ws {
			if w != ws[0] {
				t.Errorf("stratum %s has non-identical weights %v", st, ws)
			}
		}
	}
}

func TestWeighTargetFloor(t *testing.T) {
	// Proportion 0.001 with n=50: round(0.05) == 0, floored to 1.
	profile := strata.Profile{"F_18-24": 0.999, "M_65+": 0.001}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 49, "M_65+": 1})

	weighted, warnings, err := Weigh(frame, profile, false)
	if err != nil {
		t.Fatalf("Weigh: %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	w := warnings[0]
	if w.Stratum != "M_65+" || w.Proportion != 0.001 || w.SampleCount != 1 {
		t.Errorf("warning = %+v", w)
	}

	for _, r := range weighted.Respondents {
		if r.Stratum == "M_65+" {
			// F_h = max(round(0.001*50), 1) = 1, n_h = 1.
			if r.Weight != 1 {
				t.Errorf("floored weight = %v, want 1", r.Weight)
			}
		}
	}
}

func TestWeighMismatchFatal(t *testing.T) {
	tests := []struct {
		name           string
		profile        strata.Profile
		counts         map[strata.Stratum]int
		wantNotProfile []string
		wantNotFrame   []string
	}{
		{
			name:           "frame stratum missing from profile",
			profile:        strata.Profile{"F_18-24": 1},
			counts:         map[strata.Stratum]int{"F_18-24": 5, "M_65+": 5},
			wantNotProfile: []string{"M_65+"},
		},
		{
			name:         "profile stratum missing from frame",
			profile:      strata.Profile{"F_18-24": 0.5, "M_65+": 0.5},
			counts:       map[strata.Stratum]int{"F_18-24": 10},
			wantNotFrame: []string{"M_65+"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Weigh(frameWith(tt.counts), tt.profile, false)
			if err == nil {
				t.Fatal("expected StrataMismatchError")
			}
			var sme *psterrors.StrataMismatchError
			if !errors.As(err, &sme) {
				t.Fatalf("error = %T, want *StrataMismatchError", err)
			}
			if len(sme.MissingFromProfile) != len(tt.wantNotProfile) {
				t.Errorf("MissingFromProfile = %v, want %v", sme.MissingFromProfile, tt.wantNotProfile)
			}
			if len(sme.MissingFromFrame) != len(tt.wantNotFrame) {
				t.Errorf("MissingFromFrame = %v, want %v", sme.MissingFromFrame, tt.wantNotFrame)
			}
		})
	}
}

func TestWeighAllowPartial(t *testing.T) {
	// M_65+ has no population target; with allowPartial its respondents
	// keep the neutral fallback weight.
	profile := strata.Profile{"F_18-24": 1}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 10, "M_65+": 4})

	weighted, _, err := Weigh(frame, profile, true)
	if err != nil {
		t.Fatalf("Weigh: %v", err)
	}

	for _, r := range weighted.Respondents {
		switch r.Stratum {
		case "M_65+":
			if r.Weight != NeutralWeight {
				t.Errorf("uncovered stratum weight = %v, want %v", r.Weight, NeutralWeight)
			}
		case "F_18-24":
			// F_h = round(1.0*14) = 14, n_h = 10.
			if r.Weight != 1.4 {
				t.Errorf("covered stratum weight = %v, want 1.4", r.Weight)
			}
		}
	}
}

func TestWeighDoesNotMutateInput(t *testing.T) {
	profile := strata.Profile{"F_18-24": 0.5, "M_25-44": 0.5}
	frame := frameWith(map[strata.Stratum]int{"F_18-24": 80, "M_25-44": 20})

	if _, _, err := Weigh(frame, profile, false); err != nil {
		t.Fatalf("Weigh: %v", err)
	}
	for _, r := range frame.Respondents {
		if r.Weight != 1 {
			t.Fatal("Weigh mutated its input frame")
		}
	}
}
