package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/adapters/coercer"
	"tabclean/domain/records"
	"tabclean/internal"
	"tabclean/internal/errors"
)

func TestKindForDatabaseType(t *testing.T) {
	assert.Equal(t, records.KindNumeric, KindForDatabaseType("numeric"))
	assert.Equal(t, records.KindNumeric, KindForDatabaseType("INT8"))
	assert.Equal(t, records.KindDatetime, KindForDatabaseType("TIMESTAMPTZ"))
	assert.Equal(t, records.KindCategorical, KindForDatabaseType("VARCHAR"))
	assert.Equal(t, records.KindCategorical, KindForDatabaseType(""))
}

func TestResolveSchema(t *testing.T) {
	schema, err := resolveSchema(
		[]string{"regio1", "baseRent", "date", "geo_plz"},
		[]string{"TEXT", "NUMERIC", "TIMESTAMP", "INT4"},
		[]records.ColumnSpec{{Name: "geo_plz", Kind: records.KindCategorical}},
	)
	require.NoError(t, err)

	kinds := make(map[string]records.ColumnKind)
	for _, col := range schema.Columns() {
		kinds[col.Name] = col.Kind
	}
	assert.Equal(t, map[string]records.ColumnKind{
		"regio1":   records.KindCategorical,
		"baseRent": records.KindNumeric,
		"date":     records.KindDatetime,
		"geo_plz":  records.KindCategorical,
	}, kinds)

	_, err = resolveSchema([]string{"a", "a"}, []string{"TEXT", "TEXT"}, nil)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestCoerceRow_DriverValues(t *testing.T) {
	columns := []records.ColumnSpec{
		{Name: "regio1", Kind: records.KindCategorical},
		{Name: "baseRent", Kind: records.KindNumeric},
		{Name: "noRooms", Kind: records.KindNumeric},
		{Name: "date", Kind: records.KindDatetime},
		{Name: "floor", Kind: records.KindNumeric},
	}
	when := time.Date(2019, 5, 10, 0, 0, 0, 0, time.UTC)
	values := coerceRow(coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()), columns,
		[]interface{}{[]byte("Berlin"), []byte("950.50"), int64(3), when, nil})

	assert.Equal(t, records.NewLabel("Berlin"), values[0])
	assert.Equal(t, records.NewNumeric(950.5), values[1])
	assert.Equal(t, records.NewNumeric(3), values[2])
	assert.True(t, values[3].Time.Equal(when))
	assert.True(t, values[4].IsMissing())
}

func TestNewSource_DefaultsCoercion(t *testing.T) {
	src := NewSource(nil, SourceConfig{Query: "SELECT 1"}, internal.Discard())
	assert.Equal(t, "query", src.Name())

	columns := []records.ColumnSpec{
		{Name: "regio1", Kind: records.KindCategorical},
		{Name: "baseRent", Kind: records.KindNumeric},
	}
	values := coerceRow(src.coercer, columns, []interface{}{[]byte("NA"), []byte(" n/a ")})
	assert.True(t, values[0].IsMissing())
	assert.True(t, values[1].IsMissing())

	values = coerceRow(src.coercer, columns, []interface{}{[]byte(" Berlin "), []byte("950")})
	assert.Equal(t, records.NewLabel("Berlin"), values[0])
}

func TestSource_LoadFromDatabase(t *testing.T) {
	url := os.Getenv("TABCLEAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TABCLEAN_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, url)
	require.NoError(t, err)
	defer db.Close()

	src := NewSource(db, SourceConfig{
		Name:     "listings",
		Query:    `SELECT * FROM (VALUES ('Berlin', 900.0), ('Bayern', NULL)) AS t(regio1, "baseRent")`,
		Coercion: coercer.DefaultCoercionConfig(),
	}, internal.Discard())
	rs, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
	rent, _ := rs.Value(1, "baseRent")
	assert.True(t, rent.IsMissing())
}
