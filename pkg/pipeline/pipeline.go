// Package pipeline provides the core reweighting pipeline for poststrat.
//
// This package implements the complete load → profile → frame → weigh →
// trim → estimate pipeline used by the CLI. Centralizing it keeps behavior
// identical regardless of entry point and makes the whole run testable as
// one unit.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Profile: build population target proportions from the reference survey
//  2. Frame: filter and label the target survey's respondents
//  3. Weigh: compute post-stratification weights against the profile
//  4. Trim: clamp extreme weights into a bounded range
//  5. Estimate: recover weighted outcome distributions for comparison
//
// Stages 1-4 run strictly in order, each producing a fresh snapshot; only
// stage 5 fans out, one goroutine per outcome field over the finalized
// read-only frame.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    ReferencePath: "survey_a.tsv",
//	    TargetPath:    "survey_b.tsv",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows := result.Rows()
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/surveykit/poststrat/pkg/cache"
	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/quantile"
	"github.com/surveykit/poststrat/pkg/strata"
	"github.com/surveykit/poststrat/pkg/survey"
	"github.com/surveykit/poststrat/pkg/table"
	"github.com/surveykit/poststrat/pkg/weighting"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Library Use
// =============================================================================

const (
	// DefaultLowerTrimBound caps downweighting of overrepresented strata.
	DefaultLowerTrimBound = weighting.DefaultLowerBound

	// DefaultUpperTrimBound caps upweighting of underrepresented strata.
	DefaultUpperTrimBound = weighting.DefaultUpperBound

	// DefaultQuantilePoints is the probability grid size for estimation
	// (201 levels at step 0.005).
	DefaultQuantilePoints = quantile.DefaultPoints

	// ProfileSumTolerance is the floating-point tolerance applied when
	// validating that profile proportions sum to 1.
	ProfileSumTolerance = 1e-9
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one reweighting run.
// This struct supports JSON serialization for config files and run records.
type Options struct {
	// Input options. Pre-loaded rows take precedence over paths, letting
	// callers that already hold data in memory skip file I/O.
	ReferencePath string      `json:"reference_path,omitempty"`
	TargetPath    string      `json:"target_path,omitempty"`
	ReferenceRows []table.Row `json:"-"`
	TargetRows    []table.Row `json:"-"`
	Refresh       bool        `json:"refresh,omitempty"` // bypass the profile cache

	// Column bindings
	GenderColumn  string   `json:"gender_column,omitempty"`
	AgeColumn     string   `json:"age_column,omitempty"`
	GenderCodes   []string `json:"gender_codes,omitempty"` // exactly two when set
	OutcomeFields []string `json:"outcome_fields,omitempty"`

	// Weighting options. A zero trim bound selects the default: a literal
	// lower bound of 0 is not representable through this struct, use a
	// small positive value instead.
	AllowPartialStrata bool    `json:"allow_partial_strata,omitempty"`
	LowerTrimBound     float64 `json:"lower_trim_bound,omitempty"`
	UpperTrimBound     float64 `json:"upper_trim_bound,omitempty"`

	// Estimation options
	QuantilePoints int `json:"num_quantile_points,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
//
// Zero values mean "unset" and receive defaults. In particular a
// LowerTrimBound of 0 becomes DefaultLowerTrimBound; callers that want
// to clamp at (effectively) zero should pass a small positive bound.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.ReferencePath == "" && o.ReferenceRows == nil {
		return errors.New(errors.ErrCodeInvalidInput, "reference dataset is required")
	}
	if o.TargetPath == "" && o.TargetRows == nil {
		return errors.New(errors.ErrCodeInvalidInput, "target dataset is required")
	}
	if len(o.GenderCodes) != 0 && len(o.GenderCodes) != 2 {
		return errors.New(errors.ErrCodeInvalidInput, "gender_codes must name exactly two codes, got %d", len(o.GenderCodes))
	}

	if o.GenderColumn == "" {
		o.GenderColumn = survey.DefaultColumns().Gender
	}
	if o.AgeColumn == "" {
		o.AgeColumn = survey.DefaultColumns().Age
	}
	if len(o.OutcomeFields) == 0 {
		o.OutcomeFields = append([]string(nil), survey.DefaultOutcomeFields...)
	}
	if o.LowerTrimBound == 0 {
		o.LowerTrimBound = DefaultLowerTrimBound
	}
	if o.UpperTrimBound == 0 {
		o.UpperTrimBound = DefaultUpperTrimBound
	}
	if o.QuantilePoints == 0 {
		o.QuantilePoints = DefaultQuantilePoints
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if !(o.LowerTrimBound < 1 && 1 < o.UpperTrimBound) {
		return errors.New(errors.ErrCodeInvalidBounds,
			"trim bounds must satisfy lower < 1 < upper, got [%g, %g]", o.LowerTrimBound, o.UpperTrimBound)
	}
	if o.QuantilePoints < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "num_quantile_points must be at least 2, got %d", o.QuantilePoints)
	}

	o.validated = true
	return nil
}

// Classifier builds the stratum classifier configured by the options.
func (o *Options) Classifier() *strata.Classifier {
	if len(o.GenderCodes) == 2 {
		return strata.NewClassifierWithGenders(o.GenderCodes[0], o.GenderCodes[1])
	}
	return strata.NewClassifier()
}

// Columns returns the demographic column bindings.
func (o *Options) Columns() survey.Columns {
	return survey.Columns{Gender: o.GenderColumn, Age: o.AgeColumn}
}

// ProfileKeyOpts returns cache key options for profile caching.
func (o *Options) ProfileKeyOpts() cache.ProfileKeyOpts {
	opts := cache.ProfileKeyOpts{
		GenderColumn: o.GenderColumn,
		AgeColumn:    o.AgeColumn,
		Genders:      strata.DefaultGenderCodes,
	}
	if len(o.GenderCodes) == 2 {
		opts.Genders = [2]string{o.GenderCodes[0], o.GenderCodes[1]}
	}
	return opts
}
