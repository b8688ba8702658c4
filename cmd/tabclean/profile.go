package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tabclean/adapters/tabular"
	"tabclean/internal/profiling"
)

func newProfileCmd(e *env) *cobra.Command {
	var input, sheet string
	var columns []string
	var top int

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Report missing values and numeric summaries of a dataset",
		Long: `Profile a CSV or XLSX file before writing a pipeline configuration: missing
values per column (worst first) and count/mean/std/quartiles of numeric columns.

Example: tabclean profile --input immo_data.csv --top 10 --columns totalRent,baseRent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), e, cmd.OutOrStdout(), input, sheet, columns, top)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input CSV or XLSX file")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Excel sheet to read (default: first sheet)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Numeric columns to describe (default: all numeric columns)")
	cmd.Flags().IntVar(&top, "top", 0, "Only list the n columns with the most missing values")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runProfile(parent context.Context, e *env, out io.Writer, input, sheet string, columns []string, top int) error {
	ctx, cancel := e.runContext(parent)
	defer cancel()

	readerConfig := tabular.DefaultReaderConfig(input)
	readerConfig.Sheet = sheet
	reader := tabular.NewReader(readerConfig, e.logger)
	rs, err := reader.Load(ctx)
	if err != nil {
		return err
	}
	summaries, err := profiling.Describe(rs, columns...)
	if err != nil {
		return err
	}

	missing := profiling.MissingValues(rs)
	fmt.Fprintf(out, "%s: %d rows, %d columns, %d missing values", reader.Name(), missing.Rows, len(missing.Columns), missing.TotalMissing)
	if skipped := reader.Skipped(); skipped > 0 {
		fmt.Fprintf(out, ", %d malformed rows skipped", skipped)
	}
	fmt.Fprintln(out)

	listed := missing.Columns
	if top > 0 {
		listed = missing.Worst(top)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCOLUMN\tMISSING\tPERCENT")
	for _, c := range listed {
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\n", c.Column, c.Missing, c.Percent)
	}
	tw.Flush()

	if len(summaries) == 0 {
		return nil
	}
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCOLUMN\tCOUNT\tMEAN\tSTD\tMIN\t25%\t50%\t75%\tMAX")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max)
	}
	return tw.Flush()
}
