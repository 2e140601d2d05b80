package strata

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/surveykit/poststrat/pkg/errors"
)

// Subject holds the raw demographic fields of one reference record.
// Fields are kept as text so that missing values (empty strings) survive
// until classification decides whether the record is usable.
type Subject struct {
	Gender string
	Age    string
}

// Profile maps each stratum observed in the reference dataset to its
// population proportion. Proportions are non-negative and sum to 1 over
// the observed strata. Strata never observed are absent from the map,
// not present with proportion zero.
//
// A Profile is immutable after construction: one reweighting run owns it
// and no stage mutates it.
type Profile map[Stratum]float64

// BuildProfile classifies every subject, drops excluded ones, counts
// occurrences per stratum, and normalizes counts into proportions.
//
// It returns *errors.EmptyPopulationError when no subjects survive
// filtering, so a zero denominator can never silently produce NaN.
func BuildProfile(subjects []Subject, c *Classifier) (Profile, error) {
	counts := make(map[Stratum]int)
	retained := 0
	for _, s := range subjects {
		st, ok := c.ClassifyFields(s.Gender, s.Age)
		if !ok {
			continue // per-record exclusion, silent by design
		}
		counts[st]++
		retained++
	}
	if retained == 0 {
		return nil, &errors.EmptyPopulationError{Total: len(subjects)}
	}

	p := make(Profile, len(counts))
	for st, n := range counts {
		p[st] = float64(n) / float64(retained)
	}
	return p, nil
}

// Proportion returns the population proportion for st and whether st is
// present in the profile.
func (p Profile) Proportion(st Stratum) (float64, bool) {
	v, ok := p[st]
	return v, ok
}

// Strata returns the observed strata in sorted order.
func (p Profile) Strata() []Stratum {
	out := make([]Stratum, 0, len(p))
	for st := range p {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sum returns the total of all proportions. A well-formed profile sums
// to 1 within floating-point tolerance.
func (p Profile) Sum() float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	return sum
}

// Validate checks structural invariants: non-negative proportions that
// sum to 1 within tol.
func (p Profile) Validate(tol float64) error {
	if len(p) == 0 {
		return errors.New(errors.ErrCodeEmptyPopulation, "profile has no strata")
	}
	for st, v := range p {
		if v < 0 || math.IsNaN(v) {
			return errors.New(errors.ErrCodeInvalidInput, "stratum %s has invalid proportion %v", st, v)
		}
	}
	if d := math.Abs(p.Sum() - 1); d > tol {
		return errors.New(errors.ErrCodeInvalidInput, "proportions sum to %.12f, want 1 within %g", p.Sum(), tol)
	}
	return nil
}

// MarshalJSON encodes the profile with sorted keys for stable output.
func (p Profile) MarshalJSON() ([]byte, error) {
	type entry struct {
		Stratum    Stratum `json:"stratum"`
		Proportion float64 `json:"proportion"`
	}
	entries := make([]entry, 0, len(p))
	for _, st := range p.Strata() {
		entries = append(entries, entry{Stratum: st, Proportion: p[st]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the sorted-entry encoding produced by MarshalJSON.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var entries []struct {
		Stratum    Stratum `json:"stratum"`
		Proportion float64 `json:"proportion"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	out := make(Profile, len(entries))
	for _, e := range entries {
		out[e.Stratum] = e.Proportion
	}
	*p = out
	return nil
}
