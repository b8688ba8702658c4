package records

import (
	"fmt"
)

// Row is one record. ID is the row identity assigned by the source (its position there);
// it survives every transform so partitions can be checked for disjointness.
type Row struct {
	ID     int     `json:"id"`
	Values []Value `json:"values"`
}

// Clone returns a row with its own value slice
func (r Row) Clone() Row {
	values := make([]Value, len(r.Values))
	copy(values, r.Values)
	return Row{ID: r.ID, Values: values}
}

// RecordSet is an ordered collection of uniformly-shaped rows.
// Transforms never write through a RecordSet they did not create; rows returned by
// Rows must be treated as read-only.
type RecordSet struct {
	schema *Schema
	rows   []Row
}

// New creates a record set and takes ownership of rows
func New(schema *Schema, rows []Row) (*RecordSet, error) {
	for _, r := range rows {
		if len(r.Values) != schema.Len() {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns", r.ID, len(r.Values), schema.Len())
		}
	}
	return &RecordSet{schema: schema, rows: rows}, nil
}

// Schema returns the record set's schema
func (rs *RecordSet) Schema() *Schema {
	return rs.schema
}

// Len returns the number of rows
func (rs *RecordSet) Len() int {
	return len(rs.rows)
}

// Rows returns the rows in order
func (rs *RecordSet) Rows() []Row {
	return rs.rows
}

// Row returns the i-th row
func (rs *RecordSet) Row(i int) Row {
	return rs.rows[i]
}

// Value returns the value of a named column in row i
func (rs *RecordSet) Value(i int, column string) (Value, bool) {
	c, ok := rs.schema.Index(column)
	if !ok {
		return Value{}, false
	}
	return rs.rows[i].Values[c], true
}

// Column returns all values of a named column
func (rs *RecordSet) Column(name string) ([]Value, error) {
	c, ok := rs.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]Value, len(rs.rows))
	for i, r := range rs.rows {
		out[i] = r.Values[c]
	}
	return out, nil
}

// Numbers returns the non-missing numeric values of a named column
func (rs *RecordSet) Numbers(name string) ([]float64, error) {
	values, err := rs.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if n, ok := v.Number(); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// IDs returns the row identities in order
func (rs *RecordSet) IDs() []int {
	ids := make([]int, len(rs.rows))
	for i, r := range rs.rows {
		ids[i] = r.ID
	}
	return ids
}

// Clone returns a deep copy
func (rs *RecordSet) Clone() *RecordSet {
	rows := make([]Row, len(rs.rows))
	for i, r := range rs.rows {
		rows[i] = r.Clone()
	}
	return &RecordSet{schema: rs.schema, rows: rows}
}

// Filter returns a record set holding the rows for which keep is true.
// Rows are shared, not copied; neither set writes to them.
func (rs *RecordSet) Filter(keep func(Row) bool) *RecordSet {
	rows := make([]Row, 0, len(rs.rows))
	for _, r := range rs.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return &RecordSet{schema: rs.schema, rows: rows}
}

// Subset returns the rows at the given positions, in that order
func (rs *RecordSet) Subset(positions []int) *RecordSet {
	rows := make([]Row, len(positions))
	for i, p := range positions {
		rows[i] = rs.rows[p]
	}
	return &RecordSet{schema: rs.schema, rows: rows}
}

// Project returns a record set holding only the named columns
func (rs *RecordSet) Project(names []string) (*RecordSet, error) {
	schema, positions, err := rs.schema.Project(names)
	if err != nil {
		return nil, err
	}
	return rs.reshape(schema, positions), nil
}

// Drop returns a record set without the named columns
func (rs *RecordSet) Drop(names []string) (*RecordSet, error) {
	schema, positions, err := rs.schema.Without(names)
	if err != nil {
		return nil, err
	}
	return rs.reshape(schema, positions), nil
}

func (rs *RecordSet) reshape(schema *Schema, positions []int) *RecordSet {
	rows := make([]Row, len(rs.rows))
	for i, r := range rs.rows {
		values := make([]Value, len(positions))
		for j, p := range positions {
			values[j] = r.Values[p]
		}
		rows[i] = Row{ID: r.ID, Values: values}
	}
	return &RecordSet{schema: schema, rows: rows}
}

// Builder accumulates rows for a schema, assigning sequential row IDs
type Builder struct {
	schema *Schema
	rows   []Row
	nextID int
}

// NewBuilder creates a builder for schema
func NewBuilder(schema *Schema) *Builder {
	return &Builder{schema: schema}
}

// Add appends a row. Short rows are padded with missing values; long rows are an error.
func (b *Builder) Add(values ...Value) error {
	if len(values) > b.schema.Len() {
		return fmt.Errorf("row %d has %d values, schema has %d columns", b.nextID, len(values), b.schema.Len())
	}
	row := make([]Value, b.schema.Len())
	copy(row, values)
	for i := len(values); i < len(row); i++ {
		row[i] = Missing()
	}
	b.rows = append(b.rows, Row{ID: b.nextID, Values: row})
	b.nextID++
	return nil
}

// Skip advances the row counter without adding a row, keeping IDs aligned with source positions
func (b *Builder) Skip() {
	b.nextID++
}

// Len returns the number of rows added so far
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build returns the record set. The builder must not be used afterwards.
func (b *Builder) Build() *RecordSet {
	return &RecordSet{schema: b.schema, rows: b.rows}
}
