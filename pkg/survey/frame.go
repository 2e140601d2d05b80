// Package survey builds the filtered respondent frame that weighting
// operates on.
//
// A frame retains only complete respondents: valid gender, non-missing age
// inside a known band, and a non-missing value for every configured outcome
// field. Completeness is required, not imputed; incomplete records are
// dropped silently, record by record.
package survey

import (
	"sort"
	"strconv"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/table"
)

// DefaultOutcomeFields are the ordinal survey outcomes compared between
// the two datasets.
var DefaultOutcomeFields = []string{
	"info_seeking",
	"info_giving",
	"opinion_seeking",
	"opinion_giving",
	"joking",
}

// Columns names the demographic columns of a dataset.
type Columns struct {
	Gender string
	Age    string
}

// DefaultColumns returns the conventional column names.
func DefaultColumns() Columns {
	return Columns{Gender: "gender", Age: "age"}
}

// Respondent is one retained record: its stratum, its outcome values, and
// its current weight. Weights start at 1 and are set exactly twice over a
// run, first by the weighter and then by the trimmer, each time on a fresh
// frame snapshot.
type Respondent struct {
	Stratum  strata.Stratum
	Outcomes map[string]float64
	Weight   float64
}

// Frame is the filtered target-survey respondent set.
type Frame struct {
	Respondents   []Respondent
	OutcomeFields []string

	// Dropped counts records excluded during the build, for diagnostics.
	Dropped int
}

// Build filters rows into a frame using the classifier and the named
// outcome fields. A row is dropped when the classifier excludes it or when
// any outcome field is missing or unparseable. Outcome values are parsed
// as numeric codes.
func Build(rows []table.Row, cols Columns, outcomeFields []string, c *strata.Classifier) (*Frame, error) {
	if len(outcomeFields) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no outcome fields configured")
	}

	f := &Frame{OutcomeFields: append([]string(nil), outcomeFields...)}
	for _, row := range rows {
		gender, _ := row.Get(cols.Gender)
		age, _ := row.Get(cols.Age)
		st, ok := c.ClassifyFields(gender, age)
		if !ok {
			f.Dropped++
			continue
		}

		outcomes := make(map[string]float64, len(outcomeFields))
		complete := true
		for _, field := range outcomeFields {
			raw, present := row.Get(field)
			if !present {
				complete = false
				break
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				complete = false
				break
			}
			outcomes[field] = v
		}
		if !complete {
			f.Dropped++
			continue
		}

		f.Respondents = append(f.Respondents, Respondent{
			Stratum:  st,
			Outcomes: outcomes,
			Weight:   1,
		})
	}
	return f, nil
}

// Len returns the number of retained respondents.
func (f *Frame) Len() int {
	return len(f.Respondents)
}

// StratumCounts returns how many respondents fall in each stratum.
func (f *Frame) StratumCounts() map[strata.Stratum]int {
	counts := make(map[strata.Stratum]int)
	for i := range f.Respondents {
		counts[f.Respondents[i].Stratum]++
	}
	return counts
}

// Strata returns the strata present in the frame, sorted.
func (f *Frame) Strata() []strata.Stratum {
	counts := f.StratumCounts()
	out := make([]strata.Stratum, 0, len(counts))
	for st := range counts {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Weights returns a copy of the current weight vector in respondent order.
func (f *Frame) Weights() []float64 {
	out := make([]float64, len(f.Respondents))
	for i := range f.Respondents {
		out[i] = f.Respondents[i].Weight
	}
	return out
}

// TotalWeight returns the sum of all weights. After trimming this may
// drift from Len(); trimming never renormalizes.
func (f *Frame) TotalWeight() float64 {
	var sum float64
	for i := range f.Respondents {
		sum += f.Respondents[i].Weight
	}
	return sum
}

// Outcomes returns the values of one outcome field in respondent order.
func (f *Frame) Outcomes(field string) []float64 {
	out := make([]float64, len(f.Respondents))
	for i := range f.Respondents {
		out[i] = f.Respondents[i].Outcomes[field]
	}
	return out
}

// Clone returns a deep copy of the frame. Weighting stages operate on
// clones so no stage observes another's intermediate state.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Respondents:   make([]Respondent, len(f.Respondents)),
		OutcomeFields: append([]string(nil), f.OutcomeFields...),
		Dropped:       f.Dropped,
	}
	for i, r := range f.Respondents {
		outcomes := make(map[string]float64, len(r.Outcomes))
		for k, v := range r.Outcomes {
			outcomes[k] = v
		}
		out.Respondents[i] = Respondent{Stratum: r.Stratum, Outcomes: outcomes, Weight: r.Weight}
	}
	return out
}

// CheckCoverage verifies that every stratum present in the frame is also
// present in the profile. Reweighting a stratum the reference population
// never exhibited has no defined target frequency, so this fails with
// *errors.UncoveredStrataError listing the offending strata.
func (f *Frame) CheckCoverage(profile strata.Profile) error {
	var missing []string
	for _, st := range f.Strata() {
		if _, ok := profile.Proportion(st); !ok {
			missing = append(missing, string(st))
		}
	}
	if len(missing) > 0 {
		return &errors.UncoveredStrataError{Strata: missing}
	}
	return nil
}
