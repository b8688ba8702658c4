package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// SeparateTarget splits rs into the feature set (every column but target) and
// the target vector. Missing targets are NaN.
func SeparateTarget(rs *records.RecordSet, target string) (*records.RecordSet, []float64, error) {
	pos, err := numericPosition(rs.Schema(), target)
	if err != nil {
		return nil, nil, err
	}
	y := make([]float64, rs.Len())
	for i, row := range rs.Rows() {
		n, ok := row.Values[pos].Number()
		if !ok {
			n = math.NaN()
		}
		y[i] = n
	}
	x, err := rs.Drop([]string{target})
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// DesignMatrix packs the named numeric columns (every column when none are named)
// into a dense rows×columns matrix. Missing values are an error; impute first.
func DesignMatrix(rs *records.RecordSet, columns ...string) (*mat.Dense, error) {
	if len(columns) == 0 {
		columns = rs.Schema().Names()
	}
	if rs.Len() == 0 || len(columns) == 0 {
		return nil, fmt.Errorf("design matrix: %w", core.ErrEmptySource)
	}
	positions := make([]int, len(columns))
	for j, name := range columns {
		pos, err := numericPosition(rs.Schema(), name)
		if err != nil {
			return nil, err
		}
		positions[j] = pos
	}

	data := make([]float64, 0, rs.Len()*len(columns))
	for _, row := range rs.Rows() {
		for j, pos := range positions {
			n, ok := row.Values[pos].Number()
			if !ok {
				return nil, fmt.Errorf("row %d column %q: %w", row.ID, columns[j], core.ErrMissingValue)
			}
			data = append(data, n)
		}
	}
	return mat.NewDense(rs.Len(), len(columns), data), nil
}

// ReplaceColumns returns a copy of rs whose named columns hold the columns of m,
// in order. m must have one row per record.
func ReplaceColumns(rs *records.RecordSet, columns []string, m mat.Matrix) (*records.RecordSet, error) {
	r, c := m.Dims()
	if r != rs.Len() || c != len(columns) {
		return nil, fmt.Errorf("matrix is %dx%d, want %dx%d", r, c, rs.Len(), len(columns))
	}
	positions := make([]int, len(columns))
	for j, name := range columns {
		pos, err := numericPosition(rs.Schema(), name)
		if err != nil {
			return nil, err
		}
		positions[j] = pos
	}
	rows := make([]records.Row, rs.Len())
	for i, row := range rs.Rows() {
		row = row.Clone()
		for j, pos := range positions {
			row.Values[pos] = records.NewNumeric(m.At(i, j))
		}
		rows[i] = row
	}
	return records.New(rs.Schema(), rows)
}
