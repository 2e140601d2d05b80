package pipeline

import (
	"strings"
	"testing"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/table"
)

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	rows := []table.Row{{"gender": "M", "age": "30"}}

	opts := Options{ReferenceRows: rows, TargetRows: rows}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}

	if opts.GenderColumn != "gender" {
		t.Errorf("GenderColumn = %q, want %q", opts.GenderColumn, "gender")
	}
	if opts.AgeColumn != "age" {
		t.Errorf("AgeColumn = %q, want %q", opts.AgeColumn, "age")
	}
	if len(opts.OutcomeFields) != 5 {
		t.Errorf("OutcomeFields = %v, want the five defaults", opts.OutcomeFields)
	}
	if opts.LowerTrimBound != DefaultLowerTrimBound {
		t.Errorf("LowerTrimBound = %g, want %g", opts.LowerTrimBound, DefaultLowerTrimBound)
	}
	if opts.UpperTrimBound != DefaultUpperTrimBound {
		t.Errorf("UpperTrimBound = %g, want %g", opts.UpperTrimBound, DefaultUpperTrimBound)
	}
	if opts.QuantilePoints != DefaultQuantilePoints {
		t.Errorf("QuantilePoints = %d, want %d", opts.QuantilePoints, DefaultQuantilePoints)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestOptionsValidateIdempotent(t *testing.T) {
	rows := []table.Row{{"gender": "M", "age": "30"}}
	opts := Options{ReferenceRows: rows, TargetRows: rows, QuantilePoints: 101}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	opts.QuantilePoints = 0 // would fail revalidation if it ran again
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if opts.QuantilePoints != 0 {
		t.Error("second call mutated options")
	}
}

func TestOptionsValidateErrors(t *testing.T) {
	rows := []table.Row{{"gender": "M", "age": "30"}}

	tests := []struct {
		name     string
		opts     Options
		wantCode errors.Code
	}{
		{
			name:     "missing reference",
			opts:     Options{TargetRows: rows},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "missing target",
			opts:     Options{ReferenceRows: rows},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "one gender code",
			opts:     Options{ReferenceRows: rows, TargetRows: rows, GenderCodes: []string{"X"}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "lower bound above one",
			opts:     Options{ReferenceRows: rows, TargetRows: rows, LowerTrimBound: 1.5, UpperTrimBound: 5},
			wantCode: errors.ErrCodeInvalidBounds,
		},
		{
			name:     "upper bound below one",
			opts:     Options{ReferenceRows: rows, TargetRows: rows, LowerTrimBound: 0.3, UpperTrimBound: 0.9},
			wantCode: errors.ErrCodeInvalidBounds,
		},
		{
			name:     "single quantile point",
			opts:     Options{ReferenceRows: rows, TargetRows: rows, QuantilePoints: 1},
			wantCode: errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestOptionsClassifierCustomGenders(t *testing.T) {
	opts := Options{GenderCodes: []string{"m", "w"}}
	c := opts.Classifier()

	if _, ok := c.Classify("w", 30); !ok {
		t.Error(`Classify("w", 30) not matched with custom codes`)
	}
	if _, ok := c.Classify("F", 30); ok {
		t.Error(`Classify("F", 30) matched despite custom codes`)
	}
}

func TestOptionsProfileKeyOpts(t *testing.T) {
	base := Options{GenderColumn: "sex", AgeColumn: "years"}
	k := base.ProfileKeyOpts()
	if k.GenderColumn != "sex" || k.AgeColumn != "years" {
		t.Errorf("ProfileKeyOpts = %+v, want column bindings carried over", k)
	}
	if k.Genders != [2]string{"M", "F"} {
		t.Errorf("Genders = %v, want default codes", k.Genders)
	}

	custom := Options{GenderCodes: []string{"m", "w"}}
	if g := custom.ProfileKeyOpts().Genders; g != [2]string{"m", "w"} {
		t.Errorf("Genders = %v, want custom codes", g)
	}
}

func TestResultRowsOrdering(t *testing.T) {
	r := runSynthetic(t, Options{})

	rows := r.Rows()
	if len(rows) == 0 {
		t.Fatal("Rows() returned nothing")
	}

	// Weighted rows precede reference rows within each field, and fields
	// appear in option order.
	fieldOrder := map[string]int{}
	for i, f := range r.Fields {
		fieldOrder[f] = i
	}
	lastField, lastCategory := -1, ""
	for _, row := range rows {
		idx := fieldOrder[row.Field]
		if idx < lastField {
			t.Fatalf("field %q out of order", row.Field)
		}
		if idx == lastField && lastCategory == table.CategoryReference && row.Category == table.CategoryWeighted {
			t.Fatalf("weighted row after reference row for field %q", row.Field)
		}
		lastField, lastCategory = idx, row.Category
	}
}

func TestResultRowsCategories(t *testing.T) {
	r := runSynthetic(t, Options{})
	for _, row := range r.Rows() {
		switch row.Category {
		case table.CategoryWeighted, table.CategoryReference:
		default:
			t.Fatalf("unexpected category %q", row.Category)
		}
		if !strings.Contains(strings.Join(r.Fields, ","), row.Field) {
			t.Fatalf("unexpected field %q", row.Field)
		}
	}
}
