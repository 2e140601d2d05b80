package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surveykit/poststrat/pkg/pipeline"
)

// profileOpts holds the command-line flags for the profile command.
type profileOpts struct {
	output   string // output file path (stdout if empty)
	noCache  bool   // disable the profile cache
	pipeline pipeline.Options
}

// profileCommand creates the profile command. It builds the population
// profile from a reference survey without running the full pipeline,
// useful for inspecting what the weighter will aim at.
func (c *CLI) profileCommand() *cobra.Command {
	var opts profileOpts

	cmd := &cobra.Command{
		Use:   "profile <reference.tsv>",
		Short: "Build a population profile from a reference survey",
		Long: `Profile reads the reference survey, classifies each record into a
gender and age stratum, and prints the resulting population proportions
as JSON. Records with invalid gender codes or ages under 13 are excluded.

Examples:
  poststrat profile census.tsv
  poststrat profile census.tsv -o profile.json --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.pipeline.ReferencePath = args[0]
			return c.runProfile(cmd, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the profile cache")
	flags.BoolVar(&opts.pipeline.Refresh, "refresh", false, "rebuild the profile, bypassing the cache")
	flags.StringVar(&opts.pipeline.GenderColumn, "gender-column", "", "gender column name")
	flags.StringVar(&opts.pipeline.AgeColumn, "age-column", "", "age column name")
	flags.StringSliceVar(&opts.pipeline.GenderCodes, "gender-codes", nil, "the two gender codes to stratify on")

	return cmd
}

func (c *CLI) runProfile(cmd *cobra.Command, opts *profileOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	opts.pipeline.Logger = logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	profile, hit, err := runner.Profile(ctx, opts.pipeline)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built profile with %d strata", len(profile)))

	if hit {
		printInfo("profile served from cache, use --refresh to rebuild")
	}

	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(profile); err != nil {
			return err
		}
		printFile(opts.output)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}
