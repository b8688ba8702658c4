package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tabclean/adapters/postgres"
	"tabclean/domain/cleaning"
	"tabclean/domain/core"
	"tabclean/internal/errors"
)

func newRunsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run reports recorded in the cleaning_runs table",
	}
	cmd.AddCommand(newRunsShowCmd(e), newRunsListCmd(e))
	return cmd
}

func newRunsShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one recorded run with its stage counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return errors.InvalidInput(err.Error())
			}
			return withRunRepository(cmd.Context(), e, func(ctx context.Context, repo *postgres.RunRepository) error {
				run, err := repo.GetByID(ctx, id)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), []postgres.RunRecord{*run})
				fmt.Fprintf(cmd.OutOrStdout(), "\nStages: %s\n", run.Stages)
				return nil
			})
		},
	}
}

func newRunsListCmd(e *env) *cobra.Command {
	var preset, configPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs of a pipeline configuration",
		Long: `List the most recent recorded runs whose configuration fingerprint matches the
given preset or configuration file.

Example: tabclean runs list --preset housing_de --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPipelineConfig(preset, configPath)
			if err != nil {
				return err
			}
			hash, err := cleaning.Fingerprint(cfg)
			if err != nil {
				return err
			}
			return withRunRepository(cmd.Context(), e, func(ctx context.Context, repo *postgres.RunRepository) error {
				runs, err := repo.ListByConfig(ctx, hash, limit)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Bundled pipeline preset")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML pipeline configuration file")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.MarkFlagsMutuallyExclusive("preset", "config")
	cmd.MarkFlagsOneRequired("preset", "config")

	return cmd
}

func withRunRepository(parent context.Context, e *env, fn func(context.Context, *postgres.RunRepository) error) error {
	if e.config.Database.URL == "" {
		return errors.InvalidInput("DATABASE_URL is required to read recorded runs")
	}
	ctx, cancel := e.runContext(parent)
	defer cancel()

	db, err := postgres.Open(ctx, e.config.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, postgres.NewRunRepository(db))
}

func printRuns(out io.Writer, runs []postgres.RunRecord) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPIPELINE\tSTARTED\tIN\tOUT\tTRAIN\tTEST\tMS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n", r.RunID, r.Pipeline,
			r.StartedAt.Format("2006-01-02 15:04:05"), r.RowsIn, r.RowsOut, r.TrainRows, r.TestRows, r.DurationMS)
	}
	tw.Flush()
}
