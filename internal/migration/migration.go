package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tabclean/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run ledger schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL in execution order
func (r *MigrationRunner) Statements() []string {
	return []string{createCleaningRunsTable, createCleaningRunsIndexes}
}

// Run executes all database migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createCleaningRunsTable); err != nil {
		return errors.DatabaseError("failed to create cleaning_runs table", err)
	}
	if _, err := db.ExecContext(ctx, createCleaningRunsIndexes); err != nil {
		return errors.DatabaseError("failed to create cleaning_runs indexes", err)
	}
	return nil
}

const createCleaningRunsTable = `
	CREATE TABLE IF NOT EXISTS cleaning_runs (
		run_id VARCHAR(64) PRIMARY KEY,
		pipeline VARCHAR(255) NOT NULL,
		config_hash VARCHAR(64) NOT NULL,
		rows_in INTEGER NOT NULL,
		rows_out INTEGER NOT NULL,
		train_rows INTEGER NOT NULL DEFAULT 0,
		test_rows INTEGER NOT NULL DEFAULT 0,
		stages JSONB,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createCleaningRunsIndexes = `
	CREATE INDEX IF NOT EXISTS idx_cleaning_runs_config_hash ON cleaning_runs(config_hash, started_at DESC)
`
