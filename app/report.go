package app

import (
	"time"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// StageCount records how many rows entered and left one stage
type StageCount struct {
	Stage   string `json:"stage"`
	Column  string `json:"column,omitempty"`
	RowsIn  int    `json:"rows_in"`
	RowsOut int    `json:"rows_out"`
	// MissingIntroduced counts values turned missing by the stage (unmapped labels,
	// unparseable conversions, derivations with missing inputs)
	MissingIntroduced int `json:"missing_introduced,omitempty"`
}

// Dropped returns the number of rows the stage removed
func (s StageCount) Dropped() int {
	return s.RowsIn - s.RowsOut
}

// Report summarizes one cleaning run
type Report struct {
	RunID      core.RunID      `json:"run_id"`
	Pipeline   string          `json:"pipeline"`
	ConfigHash core.ConfigHash `json:"config_hash"`
	RowsIn     int             `json:"rows_in"`
	RowsOut    int             `json:"rows_out"`
	Stages     []StageCount    `json:"stages"`
	StartedAt  core.Timestamp  `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
}

func newReport(pipeline string, hash core.ConfigHash, rowsIn int) *Report {
	return &Report{
		RunID:      core.NewRunID(),
		Pipeline:   pipeline,
		ConfigHash: hash,
		RowsIn:     rowsIn,
		StartedAt:  core.Now(),
	}
}

func (r *Report) record(stage, column string, in, out, missing int) {
	r.Stages = append(r.Stages, StageCount{Stage: stage, Column: column, RowsIn: in, RowsOut: out, MissingIntroduced: missing})
}

// Stage returns the counts of the first stage with the given name and column
func (r *Report) Stage(stage, column string) (StageCount, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage && s.Column == column {
			return s, true
		}
	}
	return StageCount{}, false
}

// MissingIntroduced sums missing values introduced across stages
func (r *Report) MissingIntroduced() int {
	total := 0
	for _, s := range r.Stages {
		total += s.MissingIntroduced
	}
	return total
}

// CleanResult is the cleaned record set plus its run report
type CleanResult struct {
	Records *records.RecordSet
	Report  *Report
}
