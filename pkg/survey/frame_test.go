package survey

import (
	"errors"
	"strings"
	"testing"

	psterrors "github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/table"
)

var testFields = []string{"info_seeking", "joking"}

func rowsFromTSV(t *testing.T, tsv string) []table.Row {
	t.Helper()
	rows, err := table.Read(strings.NewReader(tsv))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return rows
}

func TestBuild(t *testing.T) {
	tsv := "gender\tage\tinfo_seeking\tjoking\n" +
		"F\t22\t3\t1\n" + // kept
		"M\t45\t2\t2\n" + // kept
		"X\t30\t1\t1\n" + // invalid gender
		"F\t\t1\t1\n" + //   missing age
		"M\t12\t1\t1\n" + // below youngest band
		"F\t30\t\t1\n" + //  missing outcome
		"M\t30\t1\tzzz\n" // unparseable outcome

	f, err := Build(rowsFromTSV(t, tsv), DefaultColumns(), testFields, strata.NewClassifier())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if f.Len() != 2 {
		t.Fatalf("retained %d respondents, want 2", f.Len())
	}
	if f.Dropped != 5 {
		t.Errorf("Dropped = %d, want 5", f.Dropped)
	}

	r := f.Respondents[0]
	if r.Stratum != "F_18-24" {
		t.Errorf("stratum = %q, want F_18-24", r.Stratum)
	}
	if r.Outcomes["info_seeking"] != 3 || r.Outcomes["joking"] != 1 {
		t.Errorf("outcomes = %v", r.Outcomes)
	}
	if r.Weight != 1 {
		t.Errorf("initial weight = %v, want 1", r.Weight)
	}
}

func TestBuildNoOutcomeFields(t *testing.T) {
	_, err := Build(nil, DefaultColumns(), nil, strata.NewClassifier())
	if !psterrors.Is(err, psterrors.ErrCodeInvalidInput) {
		t.Errorf("code = %v, want %v", psterrors.GetCode(err), psterrors.ErrCodeInvalidInput)
	}
}

func TestStratumCounts(t *testing.T) {
	tsv := "gender\tage\tinfo_seeking\tjoking\n" +
		"F\t20\t1\t1\n" +
		"F\t23\t1\t1\n" +
		"M\t70\t1\t1\n"

	f, err := Build(rowsFromTSV(t, tsv), DefaultColumns(), testFields, strata.NewClassifier())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	counts := f.StratumCounts()
	if counts["F_18-24"] != 2 || counts["M_65+"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	got := f.Strata()
	if len(got) != 2 || got[0] != "F_18-24" || got[1] != "M_65+" {
		t.Errorf("Strata() = %v", got)
	}
}

func TestClone(t *testing.T) {
	tsv := "gender\tage\tinfo_seeking\tjoking\n" +
		"F\t20\t1\t2\n"

	f, err := Build(rowsFromTSV(t, tsv), DefaultColumns(), testFields, strata.NewClassifier())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	clone := f.Clone()
	clone.Respondents[0].Weight = 9
	clone.Respondents[0].Outcomes["joking"] = 5

	if f.Respondents[0].Weight != 1 {
		t.Error("clone weight mutation leaked into original")
	}
	if f.Respondents[0].Outcomes["joking"] != 2 {
		t.Error("clone outcome mutation leaked into original")
	}
}

func TestCheckCoverage(t *testing.T) {
	tsv := "gender\tage\tinfo_seeking\tjoking\n" +
		"F\t20\t1\t1\n" +
		"M\t50\t1\t1\n"

	f, err := Build(rowsFromTSV(t, tsv), DefaultColumns(), testFields, strata.NewClassifier())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Full coverage passes.
	full := strata.Profile{"F_18-24": 0.5, "M_45-64": 0.5}
	if err := f.CheckCoverage(full); err != nil {
		t.Errorf("CheckCoverage(full) = %v", err)
	}

	// Missing stratum is fatal and reported by name.
	partial := strata.Profile{"F_18-24": 1}
	err = f.CheckCoverage(partial)
	if err == nil {
		t.Fatal("expected UncoveredStrataError")
	}
	var use *psterrors.UncoveredStrataError
	if !errors.As(err, &use) {
		t.Fatalf("error = %T, want *UncoveredStrataError", err)
	}
	if len(use.Strata) != 1 || use.Strata[0] != "M_45-64" {
		t.Errorf("Strata = %v, want [M_45-64]", use.Strata)
	}
}

func TestTotalWeight(t *testing.T) {
	f := &Frame{Respondents: []Respondent{{Weight: 0.5}, {Weight: 2.5}}}
	if got := f.TotalWeight(); got != 3 {
		t.Errorf("TotalWeight = %v, want 3", got)
	}
}
