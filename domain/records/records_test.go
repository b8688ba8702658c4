package records

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func housingSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		ColumnSpec{Name: "regio1", Kind: KindCategorical},
		ColumnSpec{Name: "baseRent", Kind: KindNumeric},
		ColumnSpec{Name: "date", Kind: KindDatetime},
	)
	require.NoError(t, err)
	return s
}

func TestNewSchema_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cols []ColumnSpec
	}{
		{"duplicate", []ColumnSpec{{Name: "a", Kind: KindNumeric}, {Name: "a", Kind: KindNumeric}}},
		{"empty name", []ColumnSpec{{Name: "", Kind: KindNumeric}}},
		{"unknown kind", []ColumnSpec{{Name: "a", Kind: "blob"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.cols...)
			assert.Error(t, err)
		})
	}
}

func TestValue_Constructors(t *testing.T) {
	assert.True(t, NewNumeric(math.NaN()).IsMissing())
	assert.True(t, NewNumeric(math.Inf(1)).IsMissing())
	assert.True(t, NewLabel("").IsMissing())
	assert.True(t, NewTimestamp(time.Time{}).IsMissing())
	assert.True(t, Value{}.IsMissing(), "zero value is missing")

	n, ok := NewNumeric(2.5).Number()
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = NewLabel("Berlin").Number()
	assert.False(t, ok)
}

func TestValue_OrdinalAndKey(t *testing.T) {
	ts := time.Date(2019, 1, 1, 0, 0, 10, 0, time.UTC)
	o, ok := NewTimestamp(ts).Ordinal()
	require.True(t, ok)
	assert.Equal(t, float64(ts.Unix()), o)

	assert.Equal(t, "3", NewNumeric(3).Key())
	assert.Equal(t, "Bayern", NewLabel("Bayern").Key())
	assert.Equal(t, MissingKey, Missing().Key())
	assert.Equal(t, "", Missing().String())
	assert.Equal(t, "2019-01-01T00:00:10.25Z", NewTimestamp(ts.Add(250*time.Millisecond)).String())
	assert.True(t, Missing().Equal(Value{}))
	assert.False(t, NewNumeric(1).Equal(NewLabel("1")))
}

func TestRecordSet_DropDoesNotMutateSource(t *testing.T) {
	s := housingSchema(t)
	b := NewBuilder(s)
	require.NoError(t, b.Add(NewLabel("Berlin"), NewNumeric(900)))
	require.NoError(t, b.Add(NewLabel("Bayern"), NewNumeric(1200), NewTimestamp(time.Now())))
	rs := b.Build()

	dropped, err := rs.Drop([]string{"date"})
	require.NoError(t, err)

	assert.Equal(t, []string{"regio1", "baseRent"}, dropped.Schema().Names())
	assert.Equal(t, 3, rs.Schema().Len(), "source schema untouched")
	assert.True(t, rs.Row(0).Values[2].IsMissing(), "short row padded with missing")
	assert.Equal(t, []int{0, 1}, dropped.IDs())

	_, err = rs.Drop([]string{"geo_plz"})
	assert.Error(t, err)
}

func TestRecordSet_FilterAndSubset(t *testing.T) {
	s := housingSchema(t)
	b := NewBuilder(s)
	for _, rent := range []float64{500, 3500, 2999} {
		require.NoError(t, b.Add(NewLabel("Berlin"), NewNumeric(rent)))
	}
	rs := b.Build()

	kept := rs.Filter(func(r Row) bool { return r.Values[1].Num < 3000 })
	assert.Equal(t, []int{0, 2}, kept.IDs())

	sub := rs.Subset([]int{2, 0})
	assert.Equal(t, []int{2, 0}, sub.IDs())

	nums, err := rs.Numbers("baseRent")
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 3500, 2999}, nums)
}

func TestBuilder_RejectsLongRows(t *testing.T) {
	b := NewBuilder(housingSchema(t))
	err := b.Add(Missing(), Missing(), Missing(), Missing())
	assert.Error(t, err)
	b.Skip()
	require.NoError(t, b.Add(NewLabel("Hessen")))
	assert.Equal(t, 1, b.Build().Row(0).ID, "skipped rows keep source positions")
}

func TestRecordSet_CloneIsDeep(t *testing.T) {
	b := NewBuilder(housingSchema(t))
	require.NoError(t, b.Add(NewLabel("Berlin"), NewNumeric(1)))
	rs := b.Build()
	c := rs.Clone()
	c.Rows()[0].Values[1] = NewNumeric(99)
	assert.Equal(t, 1.0, rs.Row(0).Values[1].Num)
}
