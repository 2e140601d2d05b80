package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surveykit/poststrat/pkg/pipeline"
	"github.com/surveykit/poststrat/pkg/store"
	"github.com/surveykit/poststrat/pkg/table"
)

// Output formats for the comparison table.
const (
	formatTSV  = "tsv"
	formatJSON = "json"
)

// reweightOpts holds the command-line flags for the reweight command.
type reweightOpts struct {
	output   string // output file path (stdout if empty)
	format   string // stdout format: tsv or json
	config   string // TOML config file path
	dbPath   string // SQLite database for run records (disabled if empty)
	noCache  bool   // disable the profile cache
	pipeline pipeline.Options
}

// reweightCommand creates the reweight command, the main entry point of the
// tool. It weights the target survey against the reference population and
// emits the before/after outcome distributions.
func (c *CLI) reweightCommand() *cobra.Command {
	var opts reweightOpts

	cmd := &cobra.Command{
		Use:   "reweight <reference.tsv> <target.tsv>",
		Short: "Reweight a target survey against a reference population",
		Long: `Reweight computes post-stratification weights for the target survey so
that its gender and age composition matches the reference survey, trims
extreme weights, and estimates outcome distributions for both datasets.

Examples:
  poststrat reweight census.tsv panel.tsv
  poststrat reweight census.tsv panel.tsv -o results.json
  poststrat reweight census.tsv panel.tsv --lower 0.5 --upper 3 --db runs.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.pipeline.ReferencePath = args[0]
			opts.pipeline.TargetPath = args[1]
			return c.runReweight(cmd, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty, format by extension)")
	flags.StringVar(&opts.format, "format", formatTSV, "stdout format: tsv or json")
	flags.StringVar(&opts.config, "config", "", "TOML config file (default poststrat.toml if present)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite database to record the run in")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the profile cache")
	flags.BoolVar(&opts.pipeline.Refresh, "refresh", false, "rebuild the profile, bypassing the cache")
	flags.Float64Var(&opts.pipeline.LowerTrimBound, "lower", pipeline.DefaultLowerTrimBound, "lower trim bound for weights (must be positive, 0 selects the default)")
	flags.Float64Var(&opts.pipeline.UpperTrimBound, "upper", pipeline.DefaultUpperTrimBound, "upper trim bound for weights")
	flags.IntVar(&opts.pipeline.QuantilePoints, "points", pipeline.DefaultQuantilePoints, "probability grid size for estimation")
	flags.BoolVar(&opts.pipeline.AllowPartialStrata, "allow-partial", false, "tolerate strata missing from either dataset")
	flags.StringVar(&opts.pipeline.GenderColumn, "gender-column", "", "gender column name")
	flags.StringVar(&opts.pipeline.AgeColumn, "age-column", "", "age column name")
	flags.StringSliceVar(&opts.pipeline.GenderCodes, "gender-codes", nil, "the two gender codes to stratify on")
	flags.StringSliceVar(&opts.pipeline.OutcomeFields, "outcomes", nil, "outcome columns to estimate")

	return cmd
}

func (c *CLI) runReweight(cmd *cobra.Command, opts *reweightOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if opts.format != formatTSV && opts.format != formatJSON {
		return fmt.Errorf("unknown format: %s (available: %s, %s)", opts.format, formatTSV, formatJSON)
	}

	cfgPath, explicit := opts.config, cmd.Flags().Changed("config")
	if cfgPath == "" {
		cfgPath = appName + ".toml"
	}
	cfg, err := loadConfig(cfgPath, explicit)
	if err != nil {
		return err
	}
	cfg.apply(&opts.pipeline, cmd)
	opts.pipeline.Logger = logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, opts.pipeline)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Reweighted %d respondents across %d strata",
		result.Frame.Len(), len(result.Profile)))

	for _, w := range result.Warnings {
		printWarning("%s", w.String())
	}
	printRunStats(result.Stats.RetainedCount, result.Stats.DroppedCount, result.CacheInfo.ProfileHit)
	printWeightSummary(result.TrimReport)

	rows := result.Rows()
	if err := c.writeResults(rows, opts); err != nil {
		return err
	}

	if opts.dbPath != "" {
		meta, err := c.recordRun(cmd, opts, rows)
		if err != nil {
			return err
		}
		printDetail("run %s recorded in %s", meta.ID, opts.dbPath)
	}

	return nil
}

// writeResults emits the comparison rows to the configured destination.
// With an output path the format follows the file extension; on stdout the
// --format flag decides.
func (c *CLI) writeResults(rows []table.ResultRow, opts *reweightOpts) error {
	if opts.output != "" {
		if err := table.ExportResults(opts.output, rows); err != nil {
			return err
		}
		printFile(opts.output)
		return nil
	}
	if opts.format == formatJSON {
		return table.WriteResultsJSON(os.Stdout, rows)
	}
	return table.WriteResults(os.Stdout, rows)
}

// recordRun persists the run parameters and result rows to SQLite.
func (c *CLI) recordRun(cmd *cobra.Command, opts *reweightOpts, rows []table.ResultRow) (store.RunMeta, error) {
	db, err := store.Open(opts.dbPath)
	if err != nil {
		return store.RunMeta{}, err
	}
	defer db.Close()

	meta := store.RunMeta{
		ReferencePath:  opts.pipeline.ReferencePath,
		TargetPath:     opts.pipeline.TargetPath,
		LowerBound:     opts.pipeline.LowerTrimBound,
		UpperBound:     opts.pipeline.UpperTrimBound,
		QuantilePoints: opts.pipeline.QuantilePoints,
		AllowPartial:   opts.pipeline.AllowPartialStrata,
	}
	return db.SaveRun(cmd.Context(), meta, rows)
}
