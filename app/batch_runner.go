package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tabclean/domain/cleaning"
	"tabclean/domain/core"
	"tabclean/domain/records"
	"tabclean/internal"
	"tabclean/internal/errors"
	"tabclean/ports"
)

// Job is one independent dataset + configuration pair
type Job struct {
	ID     core.JobID
	Name   string
	Source ports.RecordSource
	Config *cleaning.Config
	// Sink receives the outputs; nil keeps them in memory only
	Sink ports.RecordSink
}

// JobResult pairs a job with its run result
type JobResult struct {
	Job    Job
	Result *RunResult
}

// BatchRunner runs jobs concurrently. Jobs share no state; the first failure
// cancels the jobs still running.
type BatchRunner struct {
	pipeline *Pipeline
	workers  int
	logger   *internal.Logger
}

// NewBatchRunner creates a runner executing at most workers jobs at once
func NewBatchRunner(pipeline *Pipeline, workers int, logger *internal.Logger) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchRunner{pipeline: pipeline, workers: workers, logger: logger}
}

// RunAll executes jobs and returns their results in job order
func (b *BatchRunner) RunAll(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, job := range jobs {
		if job.ID == "" {
			job.ID = core.NewJobID()
		}
		g.Go(func() error {
			result, err := b.runJob(gctx, job)
			if err != nil {
				return errors.Wrapf(err, "job %s (%s) failed", job.Name, job.ID)
			}
			results[i] = JobResult{Job: job, Result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *BatchRunner) runJob(ctx context.Context, job Job) (*RunResult, error) {
	log := b.logger.With("job_id", job.ID.String())
	log.Info("loading %s from %s", job.Name, job.Source.Name())

	rs, err := job.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	result, err := b.pipeline.Run(ctx, rs, job.Config)
	if err != nil {
		return nil, err
	}
	if job.Sink != nil {
		if err := WriteResult(ctx, job.Sink, job.Name, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// WriteResult writes the partitions as <name>_train and <name>_test, or the
// cleaned set as <name>_cleaned when there is no partition. Prepared features
// are written as <name>_X_train, <name>_y_train, <name>_X_test and <name>_y_test.
func WriteResult(ctx context.Context, sink ports.RecordSink, name string, result *RunResult) error {
	var suffixes []string
	sets := map[string]*records.RecordSet{}
	add := func(suffix string, rs *records.RecordSet) {
		if rs != nil {
			suffixes = append(suffixes, suffix)
			sets[suffix] = rs
		}
	}
	if result.Partition == nil {
		add("cleaned", result.Records)
	} else {
		add("train", result.Partition.Train)
		add("test", result.Partition.Test)
	}
	if fs := result.Features; fs != nil {
		add("X_train", fs.XTrain)
		add("y_train", fs.YTrain)
		add("X_test", fs.XTest)
		add("y_test", fs.YTest)
	}
	for _, suffix := range suffixes {
		if err := sink.Write(ctx, fmt.Sprintf("%s_%s", name, suffix), sets[suffix]); err != nil {
			return err
		}
	}
	return nil
}
