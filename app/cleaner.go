package app

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"tabclean/domain/cleaning"
	"tabclean/domain/records"
	"tabclean/internal"
	"tabclean/internal/errors"
)

// Cleaner runs cleaning plans over record sets. It holds no per-run state,
// so one Cleaner may serve concurrent callers.
type Cleaner struct {
	logger *internal.Logger
}

// NewCleaner creates a cleaner logging to logger, or to the default logger when nil
func NewCleaner(logger *internal.Logger) *Cleaner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Cleaner{logger: logger}
}

// Clean resolves cfg against the record set's schema and applies it.
// Configuration errors are returned before any row is read, and rs is never modified.
func (c *Cleaner) Clean(rs *records.RecordSet, cfg *cleaning.Config) (*CleanResult, error) {
	plan, err := cfg.Plan(rs.Schema())
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return c.Execute(rs, plan)
}

// Execute applies a resolved plan: select, drop, convert, filters, remap, derive
func (c *Cleaner) Execute(rs *records.RecordSet, plan *cleaning.Plan) (*CleanResult, error) {
	if !sameColumns(rs.Schema(), plan.Input) {
		return nil, errors.InvalidInput("record set schema does not match the plan's input schema")
	}

	report := newReport(plan.Config.Name, plan.Hash, rs.Len())
	log := c.logger.With("run_id", report.RunID.String())
	log.Debug("cleaning %d rows with %s (config %s)", rs.Len(), plan.Config.Name, plan.Hash.Short())

	rows := rs.Rows()
	if plan.Select != nil {
		rows = projectRows(rows, plan.Select.Positions)
		report.record("select", "", len(rows), len(rows), 0)
	}
	if plan.Drop != nil {
		rows = projectRows(rows, plan.Drop.Positions)
		report.record("drop", "", len(rows), len(rows), 0)
	}
	if len(plan.Conversions) > 0 {
		var introduced int
		rows, introduced = convertRows(rows, plan.Conversions)
		report.record("convert", "", len(rows), len(rows), introduced)
	}
	for _, f := range plan.Filters {
		in := len(rows)
		rows = filterRows(rows, f)
		report.record("filter", f.Column, in, len(rows), 0)
		log.Debug("filter %s kept %d of %d rows", f.Column, len(rows), in)
	}
	for _, r := range plan.Remaps {
		var unmapped int
		rows, unmapped = remapRows(rows, r)
		report.record("remap", r.Column, len(rows), len(rows), unmapped)
		if unmapped > 0 {
			log.Warn("remap %s: %d values outside the mapping became missing", r.Column, unmapped)
		}
	}
	for _, d := range plan.Derivations {
		var missing int
		rows, missing = deriveRows(rows, d)
		report.record("derive", d.Name, len(rows), len(rows), missing)
	}

	out, err := records.New(plan.Output, rows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to assemble cleaned records")
	}
	report.RowsOut = out.Len()
	report.Duration = report.StartedAt.Since()
	log.Info("cleaned %s: %d -> %d rows in %s", plan.Config.Name, report.RowsIn, report.RowsOut, report.Duration)

	return &CleanResult{Records: out, Report: report}, nil
}

// Stream applies the row-local stages (select through remap) to rows read from in,
// sending survivors to out in arrival order. Emitted rows follow plan.RowSchema;
// derivations and the split need the materialized set and are not applied.
// out is closed when Stream returns.
func (c *Cleaner) Stream(ctx context.Context, plan *cleaning.Plan, in <-chan records.Row, out chan<- records.Row) error {
	defer close(out)
	var seen, kept, malformed int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-in:
			if !ok {
				c.logger.Info("streamed %s: %d -> %d rows (%d malformed)", plan.Config.Name, seen, kept, malformed)
				return nil
			}
			seen++
			if len(row.Values) != plan.Input.Len() {
				malformed++
				continue
			}
			cleaned, keep := cleanRow(plan, row)
			if !keep {
				continue
			}
			select {
			case out <- cleaned:
				kept++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// cleanRow runs the row-local stages on a single row
func cleanRow(plan *cleaning.Plan, row records.Row) (records.Row, bool) {
	if plan.Select != nil {
		row = projectRow(row, plan.Select.Positions)
	}
	if plan.Drop != nil {
		row = projectRow(row, plan.Drop.Positions)
	}
	if len(plan.Conversions) > 0 {
		row, _ = convertRow(row, plan.Conversions)
	}
	for _, f := range plan.Filters {
		if !f.Admits(row.Values[f.Pos]) {
			return records.Row{}, false
		}
	}
	if len(plan.Remaps) > 0 {
		row = row.Clone()
		for _, r := range plan.Remaps {
			row.Values[r.Pos], _ = r.Apply(row.Values[r.Pos])
		}
	}
	return row, true
}

func projectRow(row records.Row, positions []int) records.Row {
	values := make([]records.Value, len(positions))
	for j, p := range positions {
		values[j] = row.Values[p]
	}
	return records.Row{ID: row.ID, Values: values}
}

func projectRows(rows []records.Row, positions []int) []records.Row {
	out := make([]records.Row, len(rows))
	for i, r := range rows {
		out[i] = projectRow(r, positions)
	}
	return out
}

// convertRow returns a converted copy and the number of values the conversion made missing
func convertRow(row records.Row, convs []cleaning.ResolvedConversion) (records.Row, int) {
	row = row.Clone()
	introduced := 0
	for _, conv := range convs {
		before := row.Values[conv.Pos]
		after := conv.Apply(before)
		if after.IsMissing() && !before.IsMissing() {
			introduced++
		}
		row.Values[conv.Pos] = after
	}
	return row, introduced
}

func convertRows(rows []records.Row, convs []cleaning.ResolvedConversion) ([]records.Row, int) {
	out := make([]records.Row, len(rows))
	total := 0
	for i, r := range rows {
		var n int
		out[i], n = convertRow(r, convs)
		total += n
	}
	return out, total
}

// filterRows keeps the rows f admits. Surviving rows are shared, not copied.
func filterRows(rows []records.Row, f cleaning.ResolvedFilter) []records.Row {
	out := make([]records.Row, 0, len(rows))
	for _, r := range rows {
		if f.Admits(r.Values[f.Pos]) {
			out = append(out, r)
		}
	}
	return out
}

// remapRows returns remapped copies and the number of present labels with no code
func remapRows(rows []records.Row, r cleaning.ResolvedRemap) ([]records.Row, int) {
	out := make([]records.Row, len(rows))
	unmapped := 0
	for i, row := range rows {
		row = row.Clone()
		before := row.Values[r.Pos]
		after, ok := r.Apply(before)
		if !ok && !before.IsMissing() {
			unmapped++
		}
		row.Values[r.Pos] = after
		out[i] = row
	}
	return out, unmapped
}

// deriveRows appends d's value to a copy of every row and counts missing results
func deriveRows(rows []records.Row, d cleaning.ResolvedDerivation) ([]records.Row, int) {
	var grouped []records.Value
	if d.Op.IsGrouped() {
		grouped = broadcastGroups(rows, d)
	}
	out := make([]records.Row, len(rows))
	missing := 0
	for i, r := range rows {
		values := make([]records.Value, len(r.Values)+1)
		copy(values, r.Values)
		var v records.Value
		if d.Op.IsGrouped() {
			v = grouped[i]
		} else {
			v = d.Compute(r.Values)
		}
		if v.IsMissing() {
			missing++
		}
		values[len(r.Values)] = v
		out[i] = records.Row{ID: r.ID, Values: values}
	}
	return out, missing
}

// broadcastGroups computes the aggregate of the input column per group in one pass
// and assigns it back to every row of the group in a second. Rows with a missing
// group key, and groups with no numeric input, get a missing value.
func broadcastGroups(rows []records.Row, d cleaning.ResolvedDerivation) []records.Value {
	samples := make(map[string][]float64)
	for _, r := range rows {
		key := r.Values[d.ByPos]
		if key.IsMissing() {
			continue
		}
		if n, ok := r.Values[d.InputPos[0]].Number(); ok {
			samples[key.Key()] = append(samples[key.Key()], n)
		}
	}

	aggregates := make(map[string]float64, len(samples))
	for key, xs := range samples {
		agg, err := aggregate(d.Op, xs)
		if err != nil {
			continue
		}
		aggregates[key] = agg
	}

	out := make([]records.Value, len(rows))
	for i, r := range rows {
		key := r.Values[d.ByPos]
		agg, ok := aggregates[key.Key()]
		if key.IsMissing() || !ok {
			out[i] = records.Missing()
			continue
		}
		out[i] = records.NewNumeric(agg)
	}
	return out
}

func aggregate(op cleaning.DeriveOp, xs []float64) (float64, error) {
	switch op {
	case cleaning.DeriveGroupMedian:
		return stats.Median(xs)
	case cleaning.DeriveGroupMean:
		return stats.Mean(xs)
	}
	return 0, fmt.Errorf("op %s is not an aggregate", op)
}

func sameColumns(a, b *records.Schema) bool {
	if a == b {
		return true
	}
	if a.Len() != b.Len() {
		return false
	}
	bc := b.Columns()
	for i, col := range a.Columns() {
		if col.Name != bc[i].Name || col.Kind != bc[i].Kind {
			return false
		}
	}
	return true
}
