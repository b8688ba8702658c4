package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tabclean/adapters/tabular"
	"tabclean/app"
	"tabclean/domain/core"
	"tabclean/internal/errors"
)

func newBatchCmd(e *env) *cobra.Command {
	var jobs []string
	var sheet string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Clean several datasets concurrently",
		Long: `Run independent cleaning jobs concurrently. Each --job pairs a preset name or a
YAML configuration file with an input file. Concurrency follows TABCLEAN_WORKERS and
outputs go to TABCLEAN_OUT_DIR in TABCLEAN_OUT_FORMAT.

Example:
  tabclean batch --job housing_de=immo_data.csv --job nyc_taxi_2019=yellow_tripdata_2019-01.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), e, cmd.OutOrStdout(), jobs, sheet)
		},
	}

	cmd.Flags().StringArrayVar(&jobs, "job", nil, "Job as <preset|config.yaml>=<input file> (repeatable)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Excel sheet to read from XLSX inputs")
	_ = cmd.MarkFlagRequired("job")

	return cmd
}

func runBatch(parent context.Context, e *env, out io.Writer, specs []string, sheet string) error {
	writer, err := tabular.NewWriter(e.config.Output.Dir, e.config.Output.Format, e.logger)
	if err != nil {
		return err
	}

	jobs := make([]app.Job, 0, len(specs))
	inputs := make([]string, 0, len(specs))
	for _, spec := range specs {
		job, input, err := parseJob(spec, sheet, e)
		if err != nil {
			return err
		}
		job.Sink = writer
		jobs = append(jobs, job)
		inputs = append(inputs, input)
	}
	if err := assignJobNames(jobs, inputs); err != nil {
		return err
	}

	ctx, cancel := e.runContext(parent)
	defer cancel()

	runner := app.NewBatchRunner(newPipeline(e), e.config.Pipeline.Workers, e.logger)
	results, err := runner.RunAll(ctx, jobs)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: %d in, %d out (run %s)\n", r.Job.Name, r.Result.Report.RowsIn, r.Result.Report.RowsOut, r.Result.Report.RunID)
	}
	return nil
}

// parseJob turns "<preset|config.yaml>=<input>" into a job and its input path
func parseJob(spec, sheet string, e *env) (app.Job, string, error) {
	pipelineRef, input, ok := strings.Cut(spec, "=")
	if !ok || pipelineRef == "" || input == "" {
		return app.Job{}, "", errors.InvalidInput(fmt.Sprintf("invalid job %q: want <preset|config.yaml>=<input>", spec))
	}

	cfg, err := loadJobConfig(pipelineRef)
	if err != nil {
		return app.Job{}, "", err
	}
	if e.config.Pipeline.SeedSet && cfg.Split != nil {
		cfg.Split.Seed = e.config.Pipeline.Seed
	}

	return app.Job{
		ID:     core.NewJobID(),
		Source: newFileReader(input, sheet, cfg, e),
		Config: cfg,
	}, input, nil
}

// assignJobNames names each job after its input file stem. Jobs whose stems
// collide are prefixed with their parent directory (jan/trips.csv becomes
// jan_trips); names that still collide are rejected before any job runs, since
// the jobs would overwrite each other's outputs.
func assignJobNames(jobs []app.Job, inputs []string) error {
	stems := make([]string, len(inputs))
	counts := make(map[string]int, len(inputs))
	for i, input := range inputs {
		base := filepath.Base(input)
		stems[i] = strings.TrimSuffix(base, filepath.Ext(base))
		counts[stems[i]]++
	}

	owners := make(map[string]string, len(inputs))
	for i, input := range inputs {
		name := stems[i]
		if counts[name] > 1 {
			name = filepath.Base(filepath.Dir(input)) + "_" + name
		}
		if other, ok := owners[name]; ok {
			return errors.InvalidInput(fmt.Sprintf("jobs %s and %s would both write %s outputs", other, input, name))
		}
		owners[name] = input
		jobs[i].Name = name
	}
	return nil
}
