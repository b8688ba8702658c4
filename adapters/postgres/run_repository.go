package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tabclean/app"
	"tabclean/domain/core"
)

// RunRecord is one row of the cleaning_runs ledger
type RunRecord struct {
	RunID      core.RunID      `db:"run_id"`
	Pipeline   string          `db:"pipeline"`
	ConfigHash core.ConfigHash `db:"config_hash"`
	RowsIn     int             `db:"rows_in"`
	RowsOut    int             `db:"rows_out"`
	TrainRows  int             `db:"train_rows"`
	TestRows   int             `db:"test_rows"`
	Stages     json.RawMessage `db:"stages"`
	StartedAt  time.Time       `db:"started_at"`
	DurationMS int64           `db:"duration_ms"`
}

// NewRunRecord flattens a run result into a ledger row
func NewRunRecord(result *app.RunResult) (*RunRecord, error) {
	stages, err := json.Marshal(result.Report.Stages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	run := &RunRecord{
		RunID:      result.Report.RunID,
		Pipeline:   result.Report.Pipeline,
		ConfigHash: result.Report.ConfigHash,
		RowsIn:     result.Report.RowsIn,
		RowsOut:    result.Report.RowsOut,
		Stages:     stages,
		StartedAt:  result.Report.StartedAt.Time(),
		DurationMS: result.Report.Duration.Milliseconds(),
	}
	if result.Partition != nil {
		run.TrainRows = result.Partition.Train.Len()
		run.TestRows = result.Partition.Test.Len()
	}
	return run, nil
}

// RunRepository persists cleaning run reports
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts a run record; saving the same run twice updates it
func (r *RunRepository) Save(ctx context.Context, run *RunRecord) error {
	query := `INSERT INTO cleaning_runs (
		run_id, pipeline, config_hash, rows_in, rows_out, train_rows, test_rows, stages, started_at, duration_ms
	) VALUES (
		:run_id, :pipeline, :config_hash, :rows_in, :rows_out, :train_rows, :test_rows, :stages, :started_at, :duration_ms
	)
	ON CONFLICT (run_id) DO UPDATE SET
		rows_out = EXCLUDED.rows_out,
		train_rows = EXCLUDED.train_rows,
		test_rows = EXCLUDED.test_rows,
		stages = EXCLUDED.stages,
		duration_ms = EXCLUDED.duration_ms`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to save cleaning run: %w", err)
	}
	return nil
}

// GetByID retrieves a run record
func (r *RunRepository) GetByID(ctx context.Context, id core.RunID) (*RunRecord, error) {
	var run RunRecord
	err := r.db.GetContext(ctx, &run, `SELECT run_id, pipeline, config_hash, rows_in, rows_out,
		train_rows, test_rows, stages, started_at, duration_ms
	FROM cleaning_runs WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cleaning run %s: %w", id, err)
	}
	return &run, nil
}

// ListByConfig returns the most recent runs of one configuration, newest first
func (r *RunRepository) ListByConfig(ctx context.Context, hash core.ConfigHash, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRecord
	err := r.db.SelectContext(ctx, &runs, `SELECT run_id, pipeline, config_hash, rows_in, rows_out,
		train_rows, test_rows, stages, started_at, duration_ms
	FROM cleaning_runs WHERE config_hash = $1 ORDER BY started_at DESC LIMIT $2`, hash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleaning runs: %w", err)
	}
	return runs, nil
}
