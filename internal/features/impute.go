package features

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// ImputeMedian returns a copy of rs where missing values of the named numeric
// columns (every numeric column when none are named) are replaced by the column
// median. The medians used are returned; a column without values stays missing.
func ImputeMedian(rs *records.RecordSet, columns ...string) (*records.RecordSet, map[string]float64, error) {
	medians, err := Medians(rs, columns...)
	if err != nil {
		return nil, nil, err
	}
	out, err := FillMissing(rs, medians)
	if err != nil {
		return nil, nil, err
	}
	return out, medians, nil
}

// Medians computes the median of each named numeric column (every numeric column
// when none are named). Columns without values are left out.
func Medians(rs *records.RecordSet, columns ...string) (map[string]float64, error) {
	if len(columns) == 0 {
		columns = numericColumns(rs.Schema())
	}
	medians := make(map[string]float64, len(columns))
	for _, name := range columns {
		if _, err := numericPosition(rs.Schema(), name); err != nil {
			return nil, err
		}
		data, err := rs.Numbers(name)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		median, err := stats.Median(data)
		if err != nil {
			return nil, fmt.Errorf("median of %q: %w", name, err)
		}
		medians[name] = median
	}
	return medians, nil
}

// FillMissing returns a copy of rs where missing values of each column in fill
// are replaced by its fill value. Rows without missing values are shared.
func FillMissing(rs *records.RecordSet, fill map[string]float64) (*records.RecordSet, error) {
	positions := make([]int, 0, len(fill))
	values := make([]records.Value, 0, len(fill))
	for _, name := range rs.Schema().Names() {
		v, ok := fill[name]
		if !ok {
			continue
		}
		pos, err := numericPosition(rs.Schema(), name)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
		values = append(values, records.NewNumeric(v))
	}
	for name := range fill {
		if !rs.Schema().Has(name) {
			return nil, fmt.Errorf("%q: %w", name, core.ErrUnknownColumn)
		}
	}

	rows := make([]records.Row, rs.Len())
	for i, row := range rs.Rows() {
		cloned := false
		for j, pos := range positions {
			if !row.Values[pos].IsMissing() {
				continue
			}
			if !cloned {
				row = row.Clone()
				cloned = true
			}
			row.Values[pos] = values[j]
		}
		rows[i] = row
	}
	return records.New(rs.Schema(), rows)
}

func numericColumns(s *records.Schema) []string {
	var names []string
	for _, col := range s.Columns() {
		if col.Kind == records.KindNumeric {
			names = append(names, col.Name)
		}
	}
	return names
}

func numericPosition(s *records.Schema, name string) (int, error) {
	spec, ok := s.Column(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, core.ErrUnknownColumn)
	}
	if spec.Kind != records.KindNumeric {
		return 0, fmt.Errorf("%q: %w", name, core.ErrNonNumericColumn)
	}
	pos, _ := s.Index(name)
	return pos, nil
}
