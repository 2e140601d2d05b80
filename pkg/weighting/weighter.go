// Package weighting computes post-stratification weights against a
// population profile and trims them to a bounded range.
//
// Post-stratification assigns one scalar weight per stratum: every
// respondent in stratum h receives F_h / n_h, where F_h is the stratum's
// integer target frequency and n_h its sample count. There is no
// per-respondent variation within a stratum.
package weighting

import (
	"fmt"
	"math"
	"sort"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/survey"
)

// NeutralWeight is the fallback applied to respondents whose stratum has
// no population target when partial coverage is allowed. Keeping them at
// weight 1 leaves them exactly as influential as in the unweighted sample.
const NeutralWeight = 1.0

// DegenerateStratumWarning reports a stratum whose expected count rounded
// to zero and was floored to a target frequency of 1. Non-fatal; surfaced
// to the caller for audit rather than logged and lost.
type DegenerateStratumWarning struct {
	Stratum     strata.Stratum
	Proportion  float64 // population proportion that rounded to zero
	SampleCount int     // respondents in this stratum in the frame
}

// String implements fmt.Stringer.
func (w DegenerateStratumWarning) String() string {
	return fmt.Sprintf("stratum %s: target floored to 1 (proportion %.6f, %d sampled)",
		w.Stratum, w.Proportion, w.SampleCount)
}

// Weigh returns a new frame snapshot with post-stratification weights set.
//
// With n the frame size, each profile stratum h with proportion p_h > 0
// gets target frequency F_h = max(round(p_h*n), 1); flooring to 1
// guarantees a non-zero integer target even when sampling noise rounds
// the expected count to zero (such strata are reported as warnings).
// A stratum carried with p_h = 0 gets F_h = 0, not the floor. Every
// respondent in h then receives F_h / n_h.
//
// When allowPartial is false, any set difference between frame strata and
// profile strata fails with *errors.StrataMismatchError. When true,
// respondents in uncovered strata keep [NeutralWeight] and profile strata
// absent from the frame contribute nothing.
//
// The input frame is not mutated.
func Weigh(frame *survey.Frame, profile strata.Profile, allowPartial bool) (*survey.Frame, []DegenerateStratumWarning, error) {
	counts := frame.StratumCounts()

	var missingFromProfile, missingFromFrame []string
	for st := range counts {
		if _, ok := profile.Proportion(st); !ok {
			missingFromProfile = append(missingFromProfile, string(st))
		}
	}
	for st := range profile {
		if counts[st] == 0 {
			missingFromFrame = append(missingFromFrame, string(st))
		}
	}
	if !allowPartial && (len(missingFromProfile) > 0 || len(missingFromFrame) > 0) {
		sort.Strings(missingFromProfile)
		sort.Strings(missingFromFrame)
		return nil, nil, &errors.StrataMismatchError{
			MissingFromProfile: missingFromProfile,
			MissingFromFrame:   missingFromFrame,
		}
	}

	n := frame.Len()
	stratumWeight := make(map[strata.Stratum]float64, len(profile))
	var warnings []DegenerateStratumWarning

	for st, p := range profile {
		if p <= 0 {
			// Profiles built by strata.BuildProfile never carry zero
			// proportions, but a hand-built one might. The target
			// frequency is 0, so members of the stratum weigh nothing.
			stratumWeight[st] = 0
			continue
		}
		target := int(math.Round(p * float64(n)))
		if target == 0 {
			target = 1
			warnings = append(warnings, DegenerateStratumWarning{
				Stratum:     st,
				Proportion:  p,
				SampleCount: counts[st],
			})
		}
		if counts[st] == 0 {
			continue // nobody to weight; the stratum contributes nothing
		}
		stratumWeight[st] = float64(target) / float64(counts[st])
	}

	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Stratum < warnings[j].Stratum })

	out := frame.Clone()
	for i := range out.Respondents {
		if w, ok := stratumWeight[out.Respondents[i].Stratum]; ok {
			out.Respondents[i].Weight = w
		} else {
			out.Respondents[i].Weight = NeutralWeight
		}
	}
	return out, warnings, nil
}
