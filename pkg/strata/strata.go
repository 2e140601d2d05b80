// Package strata maps respondent demographics to discrete strata and builds
// population profiles from reference datasets.
//
// A stratum crosses gender (two recognized codes) with a fixed age band,
// giving at most ten strata. Respondents whose gender is unrecognized, whose
// age is missing, or whose age falls below the youngest band are excluded
// rather than imputed.
package strata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Stratum is a demographic subgroup label of the form "gender_ageband",
// e.g. "F_18-24" or "M_65+".
type Stratum string

// AgeBand is a closed, ordered age interval with a display label.
// The bands are looked up by linear scan over an ordered list; there are
// no overlaps and no gaps between consecutive bands.
type AgeBand struct {
	Lower int    // inclusive
	Upper int    // inclusive; math.MaxInt for the open-ended top band
	Label string // label fragment used in stratum names
}

// Contains reports whether age falls inside the band.
func (b AgeBand) Contains(age int) bool {
	return age >= b.Lower && age <= b.Upper
}

// AgeBands is the fixed, ordered set of age brackets used for
// stratification. Ages below the first band are excluded.
var AgeBands = []AgeBand{
	{Lower: 13, Upper: 17, Label: "13-17"},
	{Lower: 18, Upper: 24, Label: "18-24"},
	{Lower: 25, Upper: 44, Label: "25-44"},
	{Lower: 45, Upper: 64, Label: "45-64"},
	{Lower: 65, Upper: math.MaxInt, Label: "65+"},
}

// DefaultGenderCodes are the two recognized gender codes.
var DefaultGenderCodes = [2]string{"M", "F"}

// Classifier assigns respondents to strata. The zero value is not usable;
// construct one with NewClassifier.
type Classifier struct {
	genders [2]string
	bands   []AgeBand
}

// NewClassifier returns a classifier using the default gender codes and
// the fixed age bands.
func NewClassifier() *Classifier {
	return &Classifier{genders: DefaultGenderCodes, bands: AgeBands}
}

// NewClassifierWithGenders returns a classifier that recognizes exactly the
// two given gender codes instead of the defaults.
func NewClassifierWithGenders(a, b string) *Classifier {
	return &Classifier{genders: [2]string{a, b}, bands: AgeBands}
}

// Strata returns every stratum the classifier can produce, in band order
// grouped by gender. This is the full stratum space, not the observed set.
func (c *Classifier) Strata() []Stratum {
	out := make([]Stratum, 0, len(c.genders)*len(c.bands))
	for _, g := range c.genders {
		for _, b := range c.bands {
			out = append(out, Stratum(g+"_"+b.Label))
		}
	}
	return out
}

// Classify maps a respondent's gender and age to a stratum.
// The second return value is false when the respondent is excluded:
// unrecognized gender, or age below every band.
//
// Classification is deterministic and has no side effects; every valid
// (gender, age) pair maps to exactly one stratum.
func (c *Classifier) Classify(gender string, age int) (Stratum, bool) {
	if gender != c.genders[0] && gender != c.genders[1] {
		return "", false
	}
	for _, b := range c.bands {
		if b.Contains(age) {
			return Stratum(gender + "_" + b.Label), true
		}
	}
	return "", false
}

// ClassifyFields classifies from raw text fields as they appear in a
// tabular dataset. An empty or unparseable age field counts as missing
// and excludes the respondent. Gender is matched after trimming whitespace.
func (c *Classifier) ClassifyFields(gender, age string) (Stratum, bool) {
	g := strings.TrimSpace(gender)
	a := strings.TrimSpace(age)
	if a == "" {
		return "", false
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		// Some encodings carry ages as "25.0"; accept integral floats.
		f, ferr := strconv.ParseFloat(a, 64)
		if ferr != nil || f != math.Trunc(f) {
			return "", false
		}
		n = int(f)
	}
	return c.Classify(g, n)
}

// String implements fmt.Stringer for diagnostics.
func (c *Classifier) String() string {
	return fmt.Sprintf("classifier(genders=%s/%s, bands=%d)", c.genders[0], c.genders[1], len(c.bands))
}
