package tabular

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/domain/records"
	"tabclean/internal"
)

func sampleSet(t *testing.T) *records.RecordSet {
	t.Helper()
	b := records.NewBuilder(records.MustSchema(
		records.ColumnSpec{Name: "regio1", Kind: records.KindCategorical},
		records.ColumnSpec{Name: "baseRent", Kind: records.KindNumeric},
		records.ColumnSpec{Name: "rooms_per_livingspace", Kind: records.KindNumeric},
	))
	require.NoError(t, b.Add(records.NewLabel("Berlin"), records.NewNumeric(900), records.NewNumeric(0.025)))
	require.NoError(t, b.Add(records.NewLabel("Bayern"), records.Missing(), records.NewNumeric(0.5)))
	return b.Build()
}

func TestWriter_CSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "", internal.Discard())
	require.NoError(t, err)

	require.NoError(t, w.Write(context.Background(), "housing_de_train", sampleSet(t)))

	data, err := os.ReadFile(w.Path("housing_de_train"))
	require.NoError(t, err)
	assert.Equal(t, "regio1,baseRent,rooms_per_livingspace\nBerlin,900,0.025\nBayern,,0.5\n", string(data))
}

func TestWriter_ExcelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "xlsx", internal.Discard())
	require.NoError(t, err)
	want := sampleSet(t)
	require.NoError(t, w.Write(context.Background(), "housing_de_test", want))

	config := DefaultReaderConfig(w.Path("housing_de_test"))
	config.Columns = want.Schema().Columns()
	got, err := NewReader(config, internal.Discard()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want.Schema().Names(), got.Schema().Names())
	assert.Equal(t, want.Rows(), got.Rows())
}

func TestNewWriter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewWriter(t.TempDir(), "parquet", internal.Discard())
	assert.Error(t, err)
}
