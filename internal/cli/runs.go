package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surveykit/poststrat/pkg/store"
	"github.com/surveykit/poststrat/pkg/table"
)

// runsCommand creates the runs command for browsing recorded runs.
func (c *CLI) runsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse reweighting runs recorded with --db",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", appName+".db", "SQLite database holding run records")

	cmd.AddCommand(c.runsListCommand(&dbPath))
	cmd.AddCommand(c.runsShowCommand(&dbPath))

	return cmd
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs recorded in %s", *dbPath)
				return nil
			}

			for _, r := range runs {
				printKeyValue("run", r.ID)
				printDetail("created:   %s", r.CreatedAt.Format("2006-01-02 15:04:05"))
				printDetail("reference: %s", r.ReferencePath)
				printDetail("target:    %s", r.TargetPath)
				printDetail("bounds:    [%g, %g], %d grid points, partial=%t",
					r.LowerBound, r.UpperBound, r.QuantilePoints, r.AllowPartial)
			}
			return nil
		},
	}
}

// runsShowCommand creates the "runs show" subcommand, which replays a
// stored comparison table.
func (c *CLI) runsShowCommand(dbPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored distributions of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.Distributions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no distributions stored for run %s", args[0])
			}

			if format == formatJSON {
				return table.WriteResultsJSON(os.Stdout, rows)
			}
			return table.WriteResults(os.Stdout, rows)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTSV, "output format: tsv or json")

	return cmd
}
