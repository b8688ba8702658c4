package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"tabclean/adapters/postgres"
	"tabclean/adapters/rng"
	"tabclean/adapters/tabular"
	"tabclean/app"
	"tabclean/domain/cleaning"
	"tabclean/internal/errors"
	"tabclean/internal/migration"
	"tabclean/ports"
	"tabclean/presets"
)

type cleanOptions struct {
	preset      string
	configPath  string
	input       string
	sheet       string
	outDir      string
	format      string
	databaseURL string
	query       string
	seed        int64
	recordRuns  bool
	stream      bool
}

func newCleanCmd(e *env) *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a dataset and write its train/test partitions",
		Long: `Clean a dataset with a bundled preset or a YAML pipeline configuration.

The input is a CSV/XLSX file (--input) or the result of a SQL query (--query).
Outputs are written to --out-dir as <name>_train and <name>_test, or <name>_cleaned
when the configuration has no split. A features section adds <name>_X_train,
<name>_y_train, <name>_X_test and <name>_y_test.

--stream cleans an input file row by row without loading it first. It only
applies to configurations without derive, split or features.

Examples:
  tabclean clean --preset housing_de --input immo_data.csv --out-dir out/
  tabclean clean --config my.yaml --input data.xlsx --sheet Sheet1 --format xlsx
  tabclean clean --config filters.yaml --input huge.csv --stream
  tabclean clean --preset nyc_taxi_2019 --database-url postgres://... --query "SELECT * FROM trips"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("out-dir") {
				opts.outDir = e.config.Output.Dir
			}
			if !cmd.Flags().Changed("format") {
				opts.format = e.config.Output.Format
			}
			if !cmd.Flags().Changed("database-url") {
				opts.databaseURL = e.config.Database.URL
			}
			if !cmd.Flags().Changed("record-runs") {
				opts.recordRuns = e.config.Database.RecordRuns
			}
			seedSet := cmd.Flags().Changed("seed")
			if !seedSet && e.config.Pipeline.SeedSet {
				opts.seed, seedSet = e.config.Pipeline.Seed, true
			}
			return runClean(cmd.Context(), e, cmd.OutOrStdout(), opts, seedSet)
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "", "Bundled pipeline preset (see 'tabclean presets')")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML pipeline configuration file")
	cmd.Flags().StringVar(&opts.input, "input", "", "Input CSV or XLSX file")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Excel sheet to read (default: first sheet)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "out", "Directory for output files")
	cmd.Flags().StringVar(&opts.format, "format", "csv", "Output format: csv|xlsx")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection URL")
	cmd.Flags().StringVar(&opts.query, "query", "", "SQL query whose result set is cleaned")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Override the split seed of the configuration")
	cmd.Flags().BoolVar(&opts.recordRuns, "record-runs", false, "Record the run report in the cleaning_runs table")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Clean the input file row by row (row-local stages only)")
	cmd.MarkFlagsMutuallyExclusive("preset", "config")
	cmd.MarkFlagsOneRequired("preset", "config")
	cmd.MarkFlagsMutuallyExclusive("input", "query")
	cmd.MarkFlagsOneRequired("input", "query")
	cmd.MarkFlagsMutuallyExclusive("stream", "query")
	cmd.MarkFlagsMutuallyExclusive("stream", "record-runs")

	return cmd
}

func runClean(parent context.Context, e *env, out io.Writer, opts cleanOptions, seedSet bool) error {
	cfg, err := loadPipelineConfig(opts.preset, opts.configPath)
	if err != nil {
		return err
	}
	if seedSet && cfg.Split != nil {
		cfg.Split.Seed = opts.seed
	}

	ctx, cancel := e.runContext(parent)
	defer cancel()

	if opts.stream {
		return runStream(ctx, e, out, cfg, opts)
	}

	var db *sqlx.DB
	if opts.query != "" || opts.recordRuns {
		if opts.databaseURL == "" {
			return errors.InvalidInput("a database URL is required (--database-url or DATABASE_URL)")
		}
		db, err = postgres.Open(ctx, opts.databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(e.config.Database.MaxOpenConns)
	}

	var source ports.RecordSource
	if opts.query != "" {
		source = postgres.NewSource(db, postgres.SourceConfig{
			Name:    cfg.Name,
			Query:   opts.query,
			Columns: cfg.Columns,
		}, e.logger)
	} else {
		source = newFileReader(opts.input, opts.sheet, cfg, e)
	}

	writer, err := tabular.NewWriter(opts.outDir, opts.format, e.logger)
	if err != nil {
		return err
	}

	rs, err := source.Load(ctx)
	if err != nil {
		return err
	}
	result, err := newPipeline(e).Run(ctx, rs, cfg)
	if err != nil {
		return err
	}
	name := outputName(cfg, opts.input)
	if err := app.WriteResult(ctx, writer, name, result); err != nil {
		return err
	}

	if opts.recordRuns {
		if err := recordRun(ctx, db, result); err != nil {
			return err
		}
		e.logger.Info("Recorded run %s", result.Report.RunID)
	}

	printReport(out, result)
	return nil
}

// runStream cleans the input file without materializing it and writes <name>_cleaned
func runStream(ctx context.Context, e *env, out io.Writer, cfg *cleaning.Config, opts cleanOptions) error {
	writer, err := tabular.NewWriter(opts.outDir, opts.format, e.logger)
	if err != nil {
		return err
	}
	reader := newFileReader(opts.input, opts.sheet, cfg, e)
	cleaned, err := newPipeline(e).Stream(ctx, reader, cfg)
	if err != nil {
		return err
	}
	name := outputName(cfg, opts.input)
	if err := writer.Write(ctx, name+"_cleaned", cleaned); err != nil {
		return err
	}
	fmt.Fprintf(out, "Streamed %s: %d rows out, %d malformed rows skipped\n", name, cleaned.Len(), reader.Skipped())
	return nil
}

func loadPipelineConfig(preset, path string) (*cleaning.Config, error) {
	var (
		cfg *cleaning.Config
		err error
	)
	if preset != "" {
		cfg, err = presets.Load(preset)
	} else {
		cfg, _, err = cleaning.LoadConfig(path)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return cfg, nil
}

func newFileReader(path, sheet string, cfg *cleaning.Config, e *env) *tabular.Reader {
	readerConfig := tabular.DefaultReaderConfig(path)
	readerConfig.Sheet = sheet
	readerConfig.Columns = cfg.Columns
	return tabular.NewReader(readerConfig, e.logger)
}

func newPipeline(e *env) *app.Pipeline {
	return app.NewPipeline(app.NewCleaner(e.logger), app.NewSplitter(rng.New(), e.logger))
}

func recordRun(ctx context.Context, db *sqlx.DB, result *app.RunResult) error {
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return err
	}
	run, err := postgres.NewRunRecord(result)
	if err != nil {
		return err
	}
	return postgres.NewRunRepository(db).Save(ctx, run)
}

// outputName prefers the configuration name, falling back to the input file stem
func outputName(cfg *cleaning.Config, input string) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if input == "" {
		return "query"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printReport(out io.Writer, result *app.RunResult) {
	report := result.Report
	fmt.Fprintf(out, "Run %s (%s, config %s)\n", report.RunID, report.Pipeline, report.ConfigHash.Short())
	fmt.Fprintf(out, "Rows: %d in, %d out in %v\n", report.RowsIn, report.RowsOut, report.Duration)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOLUMN\tIN\tOUT\tDROPPED\tMISSING")
	for _, s := range report.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", s.Stage, s.Column, s.RowsIn, s.RowsOut, s.Dropped(), s.MissingIntroduced)
	}
	tw.Flush()

	if p := result.Partition; p != nil {
		fmt.Fprintf(out, "Split (%s, seed %d): %d train, %d test\n", p.Method, p.Seed, p.Train.Len(), p.Test.Len())
	}
	if f := result.Features; f != nil {
		fmt.Fprintf(out, "Features (target %s): %d columns, %d imputed, %d scaled, %d rows without target dropped\n",
			f.Target, f.XTrain.Schema().Len(), len(f.Medians), len(f.Scaled), f.DroppedTrain+f.DroppedTest)
	}
}
