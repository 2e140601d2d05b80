package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/surveykit/poststrat/pkg/errors"
	"github.com/surveykit/poststrat/pkg/pipeline"
)

// fileConfig mirrors the optional TOML config file. Every field is
// optional; unset fields fall back to pipeline defaults. Flags set on the
// command line take precedence over the file.
//
// Example:
//
//	gender_column = "sex"
//	age_column = "age_years"
//	outcome_fields = ["info_seeking", "joking"]
//	lower_bound = 0.5
//	upper_bound = 3.0
//	quantile_points = 101
//	allow_partial = true
type fileConfig struct {
	GenderColumn   string   `toml:"gender_column"`
	AgeColumn      string   `toml:"age_column"`
	GenderCodes    []string `toml:"gender_codes"`
	OutcomeFields  []string `toml:"outcome_fields"`
	LowerBound     float64  `toml:"lower_bound"`
	UpperBound     float64  `toml:"upper_bound"`
	QuantilePoints int      `toml:"quantile_points"`
	AllowPartial   bool     `toml:"allow_partial"`
}

// loadConfig reads a TOML config file. A missing path returns a zero
// config without error when the path was not explicitly requested.
func loadConfig(path string, explicit bool) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return cfg, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	return cfg, nil
}

// apply copies file values into opts, skipping any field whose flag was
// changed on the command line. Fields absent from both fall through to
// pipeline defaults.
func (cfg fileConfig) apply(opts *pipeline.Options, flags *cobra.Command) {
	changed := flags.Flags().Changed

	if cfg.GenderColumn != "" && !changed("gender-column") {
		opts.GenderColumn = cfg.GenderColumn
	}
	if cfg.AgeColumn != "" && !changed("age-column") {
		opts.AgeColumn = cfg.AgeColumn
	}
	if len(cfg.GenderCodes) > 0 && !changed("gender-codes") {
		opts.GenderCodes = cfg.GenderCodes
	}
	if len(cfg.OutcomeFields) > 0 && !changed("outcomes") {
		opts.OutcomeFields = cfg.OutcomeFields
	}
	if cfg.LowerBound != 0 && !changed("lower") {
		opts.LowerTrimBound = cfg.LowerBound
	}
	if cfg.UpperBound != 0 && !changed("upper") {
		opts.UpperTrimBound = cfg.UpperBound
	}
	if cfg.QuantilePoints != 0 && !changed("points") {
		opts.QuantilePoints = cfg.QuantilePoints
	}
	if cfg.AllowPartial && !changed("allow-partial") {
		opts.AllowPartialStrata = true
	}
}
