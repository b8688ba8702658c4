package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tabclean/domain/cleaning"
	"tabclean/domain/records"
	"tabclean/internal/errors"
	"tabclean/ports"
)

// RunResult is a cleaned record set, its report and, when the config has a
// split policy, the train/test partition. Features is set when the config
// prepares model inputs.
type RunResult struct {
	CleanResult
	Partition *Partition
	Features  *FeatureSet
}

// Pipeline runs clean, split and feature preparation
type Pipeline struct {
	cleaner  *Cleaner
	splitter *Splitter
}

// NewPipeline wires a cleaner and a splitter
func NewPipeline(cleaner *Cleaner, splitter *Splitter) *Pipeline {
	return &Pipeline{cleaner: cleaner, splitter: splitter}
}

// Run plans cfg against rs, cleans it and splits the result.
// Every configuration error, including an invalid split policy, is reported
// before the first row is processed.
func (p *Pipeline) Run(ctx context.Context, rs *records.RecordSet, cfg *cleaning.Config) (*RunResult, error) {
	plan, err := cfg.Plan(rs.Schema())
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, err := p.cleaner.Execute(rs, plan)
	if err != nil {
		return nil, err
	}
	result := &RunResult{CleanResult: *cleaned}
	train, test := cleaned.Records, (*records.RecordSet)(nil)
	if cfg.Split != nil {
		if result.Partition, err = p.splitter.Split(ctx, cleaned.Records, *cfg.Split); err != nil {
			return nil, err
		}
		train, test = result.Partition.Train, result.Partition.Test
	}
	if cfg.Features != nil {
		if result.Features, err = PrepareFeatures(*cfg.Features, plan.FeatureColumns, train, test); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Stream cleans rows from src without materializing the input. Only the
// row-local stages can stream, so a config with derivations, a split or
// feature preparation is rejected before any row is read.
func (p *Pipeline) Stream(ctx context.Context, src ports.RowStreamer, cfg *cleaning.Config) (*records.RecordSet, error) {
	switch {
	case len(cfg.Derive) > 0:
		return nil, errors.ConfigInvalid(fmt.Sprintf("pipeline %s derives columns and cannot be streamed", cfg.Name))
	case cfg.Split != nil:
		return nil, errors.ConfigInvalid(fmt.Sprintf("pipeline %s splits its output and cannot be streamed", cfg.Name))
	case cfg.Features != nil:
		return nil, errors.ConfigInvalid(fmt.Sprintf("pipeline %s prepares features and cannot be streamed", cfg.Name))
	}
	schema, err := src.Schema(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := cfg.Plan(schema)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	in := make(chan records.Row, 256)
	out := make(chan records.Row, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.ReadRows(gctx, in) })
	g.Go(func() error { return p.cleaner.Stream(gctx, plan, in, out) })

	var rows []records.Row
	for row := range out {
		rows = append(rows, row)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records.New(plan.RowSchema, rows)
}
