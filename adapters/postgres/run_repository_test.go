package postgres

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/app"
	"tabclean/domain/core"
	"tabclean/domain/records"
)

func TestNewRunRecord(t *testing.T) {
	schema := records.MustSchema(records.ColumnSpec{Name: "rent", Kind: records.KindNumeric})
	train, err := records.New(schema, []records.Row{{ID: 0, Values: []records.Value{records.NewNumeric(1)}}})
	require.NoError(t, err)
	test, err := records.New(schema, nil)
	require.NoError(t, err)

	result := &app.RunResult{
		CleanResult: app.CleanResult{
			Records: train,
			Report: &app.Report{
				RunID:      core.NewRunID(),
				Pipeline:   "housing_de",
				ConfigHash: core.ConfigHash("abc"),
				RowsIn:     3,
				RowsOut:    1,
				Stages:     []app.StageCount{{Stage: "filter", Column: "rent", RowsIn: 3, RowsOut: 1}},
				StartedAt:  core.Now(),
			},
		},
		Partition: &app.Partition{Train: train, Test: test},
	}

	run, err := NewRunRecord(result)
	require.NoError(t, err)
	assert.Equal(t, result.Report.RunID, run.RunID)
	assert.Equal(t, 1, run.TrainRows)
	assert.Equal(t, 0, run.TestRows)

	var stages []app.StageCount
	require.NoError(t, json.Unmarshal(run.Stages, &stages))
	assert.Equal(t, result.Report.Stages, stages)
}
