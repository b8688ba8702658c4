package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// Summary holds descriptive statistics of one numeric column.
// Statistics of a column without values are NaN.
type Summary struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Describe summarizes the named numeric columns, or every numeric column when none are named
func Describe(rs *records.RecordSet, columns ...string) ([]Summary, error) {
	if len(columns) == 0 {
		for _, col := range rs.Schema().Columns() {
			if col.Kind == records.KindNumeric {
				columns = append(columns, col.Name)
			}
		}
	}
	out := make([]Summary, 0, len(columns))
	for _, name := range columns {
		spec, ok := rs.Schema().Column(name)
		if !ok {
			return nil, fmt.Errorf("describe %q: %w", name, core.ErrUnknownColumn)
		}
		if spec.Kind != records.KindNumeric {
			return nil, fmt.Errorf("describe %q: %w", name, core.ErrNonNumericColumn)
		}
		data, err := rs.Numbers(name)
		if err != nil {
			return nil, err
		}
		s, err := summarize(name, data)
		if err != nil {
			return nil, fmt.Errorf("describe %q: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func summarize(name string, data []float64) (Summary, error) {
	nan := math.NaN()
	s := Summary{Column: name, Count: len(data), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan, Skewness: nan, Kurtosis: nan}
	if len(data) == 0 {
		return s, nil
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.Q25, err = stats.Percentile(data, 25); err != nil {
		return s, err
	}
	if s.Q75, err = stats.Percentile(data, 75); err != nil {
		return s, err
	}
	if len(data) > 1 {
		if s.Std, err = stats.StandardDeviationSample(data); err != nil {
			return s, err
		}
		s.Skewness = stat.Skew(data, nil)
		s.Kurtosis = stat.ExKurtosis(data, nil)
	}
	return s, nil
}
