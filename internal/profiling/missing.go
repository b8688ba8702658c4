package profiling

import (
	"sort"

	"tabclean/domain/records"
)

// ColumnMissing counts missing values in one column
type ColumnMissing struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Percent float64 `json:"percent"`
}

// MissingReport counts missing values per column
type MissingReport struct {
	Rows         int             `json:"rows"`
	Columns      []ColumnMissing `json:"columns"`
	TotalMissing int             `json:"total_missing"`
}

// MissingValues counts missing values for every column, in schema order
func MissingValues(rs *records.RecordSet) MissingReport {
	names := rs.Schema().Names()
	counts := make([]int, len(names))
	for _, row := range rs.Rows() {
		for i, v := range row.Values {
			if v.IsMissing() {
				counts[i]++
			}
		}
	}

	report := MissingReport{Rows: rs.Len(), Columns: make([]ColumnMissing, len(names))}
	for i, name := range names {
		pct := 0.0
		if rs.Len() > 0 {
			pct = 100 * float64(counts[i]) / float64(rs.Len())
		}
		report.Columns[i] = ColumnMissing{Column: name, Missing: counts[i], Percent: pct}
		report.TotalMissing += counts[i]
	}
	return report
}

// Worst returns the n columns with the most missing values, most first
func (r MissingReport) Worst(n int) []ColumnMissing {
	cols := make([]ColumnMissing, len(r.Columns))
	copy(cols, r.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Missing > cols[j].Missing })
	if n < len(cols) {
		cols = cols[:n]
	}
	return cols
}
