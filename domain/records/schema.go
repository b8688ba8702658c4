package records

import (
	"fmt"
)

// ColumnKind is the declared kind of a column
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
)

// Valid reports whether k is a known column kind
func (k ColumnKind) Valid() bool {
	switch k {
	case KindNumeric, KindCategorical, KindDatetime:
		return true
	}
	return false
}

// ColumnSpec describes one named, typed column
type ColumnSpec struct {
	Name string     `yaml:"name" json:"name"`
	Kind ColumnKind `yaml:"kind" json:"kind"`
	// Labels is the finite admissible label set of a categorical column, if known
	Labels []string `yaml:"labels,omitempty" json:"labels,omitempty"`
	// Layout is the time layout for datetime columns; empty means auto-detect
	Layout string `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// Schema is an immutable ordered set of column specs
type Schema struct {
	columns []ColumnSpec
	index   map[string]int
}

// NewSchema builds a schema, rejecting duplicate or empty names and unknown kinds
func NewSchema(columns ...ColumnSpec) (*Schema, error) {
	s := &Schema{
		columns: make([]ColumnSpec, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("column %q has unknown kind %q", c.Name, c.Kind)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for fixtures and presets
func MustSchema(columns ...ColumnSpec) *Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns a copy of the column specs
func (s *Schema) Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in order
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of a named column
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether a named column exists
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Column returns the spec of a named column
func (s *Schema) Column(name string) (ColumnSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return s.columns[i], true
}

// Project returns a schema holding only the given columns, in the given order,
// and the source positions of each kept column.
func (s *Schema) Project(names []string) (*Schema, []int, error) {
	cols := make([]ColumnSpec, 0, len(names))
	positions := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := s.index[name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown column %q", name)
		}
		cols = append(cols, s.columns[i])
		positions = append(positions, i)
	}
	out, err := NewSchema(cols...)
	if err != nil {
		return nil, nil, err
	}
	return out, positions, nil
}

// Without returns a schema lacking the given columns plus the positions that were kept
func (s *Schema) Without(names []string) (*Schema, []int, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !s.Has(name) {
			return nil, nil, fmt.Errorf("unknown column %q", name)
		}
		drop[name] = true
	}
	keep := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return s.Project(keep)
}

// With returns a schema with col appended
func (s *Schema) With(col ColumnSpec) (*Schema, error) {
	return NewSchema(append(s.Columns(), col)...)
}

// Replace returns a schema where the named column's spec is swapped for col.
// The column keeps its position; col may rename it.
func (s *Schema) Replace(name string, col ColumnSpec) (*Schema, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	cols := s.Columns()
	cols[i] = col
	return NewSchema(cols...)
}
