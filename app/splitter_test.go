package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabclean/adapters/rng"
	"tabclean/domain/cleaning"
	"tabclean/domain/core"
	"tabclean/domain/records"
	"tabclean/internal"
)

func newTestSplitter() *Splitter { return NewSplitter(rng.New(), internal.Discard()) }

// strataSet builds rows whose "region" column has the given stratum sizes
func strataSet(t *testing.T, sizes map[string]int, missing int) *records.RecordSet {
	t.Helper()
	b := records.NewBuilder(records.MustSchema(
		records.ColumnSpec{Name: "region", Kind: records.KindCategorical},
		records.ColumnSpec{Name: "rent", Kind: records.KindNumeric},
	))
	for _, key := range []string{"Berlin", "Bayern", "Hessen", "Bremen"} {
		for i := 0; i < sizes[key]; i++ {
			require.NoError(t, b.Add(label(key), num(float64(500+i))))
		}
	}
	for i := 0; i < missing; i++ {
		require.NoError(t, b.Add(records.Missing(), num(1000)))
	}
	return b.Build()
}

func assertExactPartition(t *testing.T, rs *records.RecordSet, p *Partition) {
	t.Helper()
	assert.Equal(t, rs.Len(), p.Train.Len()+p.Test.Len())
	seen := make(map[int]bool, rs.Len())
	for _, id := range append(p.Train.IDs(), p.Test.IDs()...) {
		assert.False(t, seen[id], "row %d appears twice", id)
		seen[id] = true
	}
	for _, id := range rs.IDs() {
		assert.True(t, seen[id], "row %d is lost", id)
	}
}

func TestSplit_PlainIsExactAndSeeded(t *testing.T) {
	rs := rentSet(t)
	b := records.NewBuilder(rs.Schema())
	for i := 0; i < 101; i++ {
		require.NoError(t, b.Add(num(float64(i))))
	}
	rs = b.Build()
	policy := cleaning.SplitPolicy{TestFraction: 0.2, Seed: 42}
	s := newTestSplitter()

	p, err := s.Split(context.Background(), rs, policy)
	require.NoError(t, err)
	assertExactPartition(t, rs, p)
	assert.Equal(t, 21, p.Test.Len(), "test size rounds up")
	assert.Equal(t, "simple_random", p.Method)

	again, err := s.Split(context.Background(), rs, policy)
	require.NoError(t, err)
	assert.Equal(t, p.Test.IDs(), again.Test.IDs())

	policy.Seed = 7
	other, err := s.Split(context.Background(), rs, policy)
	require.NoError(t, err)
	assert.NotEqual(t, p.Test.IDs(), other.Test.IDs())
}

func TestSplit_StratifiedKeepsProportions(t *testing.T) {
	sizes := map[string]int{"Berlin": 300, "Bayern": 120, "Hessen": 50, "Bremen": 5}
	rs := strataSet(t, sizes, 3)
	policy := cleaning.SplitPolicy{TestFraction: 0.2, Seed: 42, Stratify: "region"}

	p, err := newTestSplitter().Split(context.Background(), rs, policy)
	require.NoError(t, err)
	assertExactPartition(t, rs, p)
	assert.Equal(t, "stratified_random", p.Method)
	assert.Equal(t, 5, p.Strata, "missing values form their own stratum")

	testCounts := make(map[string]int)
	for i := 0; i < p.Test.Len(); i++ {
		v, _ := p.Test.Value(i, "region")
		testCounts[v.Key()]++
	}
	for key, n := range sizes {
		if n < 30 {
			continue
		}
		want := float64(n) / float64(rs.Len())
		got := float64(testCounts[key]) / float64(p.Test.Len())
		assert.InDelta(t, want, got, 0.02, "stratum %s", key)
	}
}

func TestSplit_StratifiedIsDeterministic(t *testing.T) {
	rs := strataSet(t, map[string]int{"Berlin": 40, "Bayern": 35}, 0)
	policy := cleaning.SplitPolicy{TestFraction: 0.3, Seed: 42, Stratify: "region"}

	a, err := newTestSplitter().Split(context.Background(), rs, policy)
	require.NoError(t, err)
	b, err := newTestSplitter().Split(context.Background(), rs, policy)
	require.NoError(t, err)
	assert.Equal(t, a.Train.IDs(), b.Train.IDs())
	assert.Equal(t, a.Test.IDs(), b.Test.IDs())
}

func TestSplit_StratifiedHoldsOutCeilingAcrossSmallStrata(t *testing.T) {
	b := records.NewBuilder(records.MustSchema(
		records.ColumnSpec{Name: "region", Kind: records.KindCategorical},
		records.ColumnSpec{Name: "rent", Kind: records.KindNumeric},
	))
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("district-%02d", i)
		require.NoError(t, b.Add(label(key), num(500)))
		require.NoError(t, b.Add(label(key), num(600)))
	}
	rs := b.Build()

	p, err := newTestSplitter().Split(context.Background(), rs, cleaning.SplitPolicy{TestFraction: 0.2, Seed: 42, Stratify: "region"})
	require.NoError(t, err)
	assertExactPartition(t, rs, p)
	assert.Equal(t, 50, p.Strata)
	assert.Equal(t, 20, p.Test.Len())

	perStratum := make(map[string]int)
	for i := 0; i < p.Test.Len(); i++ {
		v, _ := p.Test.Value(i, "region")
		perStratum[v.Key()]++
	}
	for key, n := range perStratum {
		assert.Equal(t, 1, n, "stratum %s", key)
	}
}

func TestSplit_MissingStratumIsSeparateFromLookalikeLabel(t *testing.T) {
	b := records.NewBuilder(records.MustSchema(
		records.ColumnSpec{Name: "region", Kind: records.KindCategorical},
		records.ColumnSpec{Name: "rent", Kind: records.KindNumeric},
	))
	for i := 0; i < 40; i++ {
		require.NoError(t, b.Add(label(records.MissingKey), num(500)))
		require.NoError(t, b.Add(records.Missing(), num(600)))
	}
	rs := b.Build()

	p, err := newTestSplitter().Split(context.Background(), rs, cleaning.SplitPolicy{TestFraction: 0.25, Seed: 42, Stratify: "region"})
	require.NoError(t, err)
	assertExactPartition(t, rs, p)
	assert.Equal(t, 2, p.Strata)

	missing := 0
	for i := 0; i < p.Test.Len(); i++ {
		if v, _ := p.Test.Value(i, "region"); v.IsMissing() {
			missing++
		}
	}
	assert.Equal(t, 20, p.Test.Len())
	assert.Equal(t, 10, missing)
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
		nTest int
		want  []int
	}{
		{"exact shares", []int{50, 30, 20}, 10, []int{5, 3, 2}},
		{"leftover to largest remainder", []int{7, 2, 1}, 3, []int{2, 1, 0}},
		{"ties go to earlier strata", []int{2, 2, 2}, 2, []int{1, 1, 0}},
		{"everything", []int{1, 1}, 2, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allocate(tt.sizes, tt.nTest))
		})
	}
}

func TestSplit_PolicyErrors(t *testing.T) {
	rs := strataSet(t, map[string]int{"Berlin": 10}, 0)
	tests := []struct {
		name   string
		policy cleaning.SplitPolicy
		kind   error
	}{
		{"fraction zero", cleaning.SplitPolicy{TestFraction: 0}, core.ErrInvalidSplit},
		{"fraction one", cleaning.SplitPolicy{TestFraction: 1}, core.ErrInvalidSplit},
		{"fraction above one", cleaning.SplitPolicy{TestFraction: 1.5}, core.ErrInvalidSplit},
		{"unknown stratify column", cleaning.SplitPolicy{TestFraction: 0.2, Stratify: "regio1"}, core.ErrUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestSplitter().Split(context.Background(), rs, tt.policy)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}
