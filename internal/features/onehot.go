package features

import (
	"fmt"
	"sort"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// OneHotEncoder expands one column into numeric indicator columns, one per
// category seen when it was fitted
type OneHotEncoder struct {
	Column string
	// Names are the indicator columns, "<column>_<value>", in category order
	Names []string
	index map[string]int
}

// FitOneHot learns the distinct non-missing values of column. Numeric values are
// ordered numerically, labels lexically.
func FitOneHot(rs *records.RecordSet, column string) (*OneHotEncoder, error) {
	pos, ok := rs.Schema().Index(column)
	if !ok {
		return nil, fmt.Errorf("%q: %w", column, core.ErrUnknownColumn)
	}

	distinct := make(map[string]records.Value)
	for _, row := range rs.Rows() {
		v := row.Values[pos]
		if !v.IsMissing() {
			distinct[v.Key()] = v
		}
	}
	categories := make([]records.Value, 0, len(distinct))
	for _, v := range distinct {
		categories = append(categories, v)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, okA := categories[i].Ordinal()
		b, okB := categories[j].Ordinal()
		if okA && okB {
			return a < b
		}
		return categories[i].Key() < categories[j].Key()
	})

	e := &OneHotEncoder{Column: column, Names: make([]string, len(categories)), index: make(map[string]int, len(categories))}
	for i, v := range categories {
		e.Names[i] = column + "_" + v.Key()
		e.index[v.Key()] = i
	}
	return e, nil
}

// Transform replaces the encoder's column with its indicator columns, appended
// after the remaining columns. Missing values and categories not seen during
// fitting get all zeros.
func (e *OneHotEncoder) Transform(rs *records.RecordSet) (*records.RecordSet, error) {
	if e.index == nil {
		return nil, core.ErrNotFitted
	}
	pos, ok := rs.Schema().Index(e.Column)
	if !ok {
		return nil, fmt.Errorf("%q: %w", e.Column, core.ErrUnknownColumn)
	}
	base, kept, err := rs.Schema().Without([]string{e.Column})
	if err != nil {
		return nil, err
	}
	cols := base.Columns()
	for _, name := range e.Names {
		cols = append(cols, records.ColumnSpec{Name: name, Kind: records.KindNumeric})
	}
	schema, err := records.NewSchema(cols...)
	if err != nil {
		return nil, fmt.Errorf("one-hot %q: %w", e.Column, err)
	}

	zero, one := records.NewNumeric(0), records.NewNumeric(1)
	rows := make([]records.Row, rs.Len())
	for i, row := range rs.Rows() {
		values := make([]records.Value, 0, len(kept)+len(e.Names))
		for _, p := range kept {
			values = append(values, row.Values[p])
		}
		hot := -1
		if v := row.Values[pos]; !v.IsMissing() {
			if c, ok := e.index[v.Key()]; ok {
				hot = c
			}
		}
		for c := range e.Names {
			if c == hot {
				values = append(values, one)
			} else {
				values = append(values, zero)
			}
		}
		rows[i] = records.Row{ID: row.ID, Values: values}
	}
	return records.New(schema, rows)
}

// OneHot fits an encoder on rs and applies it. The indicator names are returned
// in column order.
func OneHot(rs *records.RecordSet, column string) (*records.RecordSet, []string, error) {
	e, err := FitOneHot(rs, column)
	if err != nil {
		return nil, nil, err
	}
	out, err := e.Transform(rs)
	if err != nil {
		return nil, nil, err
	}
	return out, e.Names, nil
}
