package app

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"tabclean/domain/cleaning"
	"tabclean/domain/records"
	"tabclean/internal"
	"tabclean/internal/errors"
	"tabclean/ports"
)

// Partition is the outcome of a train/test split
type Partition struct {
	Train  *records.RecordSet
	Test   *records.RecordSet
	Method string
	// Strata counts the distinct stratum keys; zero for a plain split
	Strata int
	Seed   int64
}

// Splitter partitions cleaned record sets into train and test sets
type Splitter struct {
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewSplitter creates a splitter drawing randomness from rng
func NewSplitter(rng ports.RNGPort, logger *internal.Logger) *Splitter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Splitter{rng: rng, logger: logger}
}

// Split partitions rs exactly: every row lands in one of train or test.
// A plain split shuffles all rows and sends ceil(n*fraction) to test.
// A stratified split shuffles each stratum separately, in sorted key order, and sends
// round(size*fraction) of it to test, so strata keep their proportions. Missing stratum
// values form their own stratum. The same seed always yields the same partition.
func (s *Splitter) Split(ctx context.Context, rs *records.RecordSet, policy cleaning.SplitPolicy) (*Partition, error) {
	stratifyPos, err := policy.Resolve(rs.Schema())
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	rng, err := s.rng.SeededStream(ctx, "split", policy.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed split")
	}

	p := &Partition{Seed: policy.Seed}
	var train, test []int
	if stratifyPos < 0 {
		p.Method = "simple_random"
		train, test = plainPartition(rs.Len(), policy.TestFraction, rng)
	} else {
		p.Method = "stratified_random"
		train, test, p.Strata = stratifiedPartition(rs, stratifyPos, policy.TestFraction, rng)
	}
	p.Train = rs.Subset(train)
	p.Test = rs.Subset(test)

	s.logger.Debug("split %d rows (%s, seed %d): train=%d test=%d",
		rs.Len(), p.Method, policy.Seed, p.Train.Len(), p.Test.Len())
	return p, nil
}

func plainPartition(n int, fraction float64, rng *rand.Rand) ([]int, []int) {
	nTest := int(math.Ceil(float64(n) * fraction))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest]
}

// stratum identifies one stratification group; missing values form their own
// stratum, ordered after every labelled one
type stratum struct {
	missing bool
	key     string
}

func stratifiedPartition(rs *records.RecordSet, pos int, fraction float64, rng *rand.Rand) ([]int, []int, int) {
	strata := make(map[stratum][]int)
	for i, row := range rs.Rows() {
		v := row.Values[pos]
		k := stratum{missing: v.IsMissing()}
		if !k.missing {
			k.key = v.Key()
		}
		strata[k] = append(strata[k], i)
	}
	keys := make([]stratum, 0, len(strata))
	for k := range strata {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].missing != keys[j].missing {
			return !keys[i].missing
		}
		return keys[i].key < keys[j].key
	})

	sizes := make([]int, len(keys))
	for i, k := range keys {
		sizes[i] = len(strata[k])
	}
	quotas := allocate(sizes, int(math.Ceil(float64(rs.Len())*fraction)))

	var train, test []int
	for i, k := range keys {
		members := strata[k]
		rng.Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})
		test = append(test, members[:quotas[i]]...)
		train = append(train, members[quotas[i]:]...)
	}
	return train, test, len(keys)
}

// allocate spreads nTest over strata in proportion to their sizes. Each stratum
// gets the floor of its share; the rows left over go to the strata with the
// largest remainders, earlier strata first on ties. The quotas sum to nTest.
func allocate(sizes []int, nTest int) []int {
	n := 0
	for _, size := range sizes {
		n += size
	}
	quotas := make([]int, len(sizes))
	if n == 0 {
		return quotas
	}
	remainders := make([]int, len(sizes))
	left := nTest
	for i, size := range sizes {
		quotas[i] = size * nTest / n
		remainders[i] = size * nTest % n
		left -= quotas[i]
	}
	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, i := range order {
		if left == 0 {
			break
		}
		if remainders[i] > 0 {
			quotas[i]++
			left--
		}
	}
	return quotas
}
