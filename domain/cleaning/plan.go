package cleaning

import (
	"math"
	"time"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// Projection is a resolved column selection
type Projection struct {
	Schema    *records.Schema
	Positions []int
}

// ResolvedConversion is a conversion bound to a column position
type ResolvedConversion struct {
	Conversion
	Pos int
}

// Apply converts one value. Values of the wrong kind become missing.
func (rc ResolvedConversion) Apply(v records.Value) records.Value {
	switch rc.op() {
	case ConvertEpochSeconds:
		if !v.IsTimestamp() {
			return records.Missing()
		}
		return records.NewNumeric(records.EpochSeconds(v.Time))
	default:
		n, ok := v.Number()
		if !ok {
			return records.Missing()
		}
		n *= rc.Factor
		if rc.Decimals != nil {
			p := math.Pow(10, float64(*rc.Decimals))
			n = math.RoundToEven(n*p) / p
		}
		return records.NewNumeric(n)
	}
}

// ResolvedFilter is a filter bound to a column position
type ResolvedFilter struct {
	Filter
	Pos   int
	lo    bound
	hi    bound
	notIn map[float64]bool
}

// Admits reports whether v passes every bound. Missing and non-ordinal values never pass.
func (rf ResolvedFilter) Admits(v records.Value) bool {
	x, ok := v.Ordinal()
	if !ok {
		return false
	}
	if rf.lo.set {
		if x < rf.lo.value || (x == rf.lo.value && !rf.lo.inclusive) {
			return false
		}
	}
	if rf.hi.set {
		if x > rf.hi.value || (x == rf.hi.value && !rf.hi.inclusive) {
			return false
		}
	}
	return !rf.notIn[x]
}

// ResolvedRemap is a remap bound to a column position
type ResolvedRemap struct {
	Remap
	Pos int
}

// Apply maps a label to its code. An unmapped or missing label yields missing and false.
func (rr ResolvedRemap) Apply(v records.Value) (records.Value, bool) {
	if v.IsMissing() {
		return records.Missing(), false
	}
	code, ok := rr.Codes[v.Key()]
	if !ok {
		return records.Missing(), false
	}
	return records.NewNumeric(float64(code)), true
}

// ResolvedDerivation is a derivation bound to input positions
type ResolvedDerivation struct {
	Derivation
	InputPos []int
	ByPos    int
}

// Compute evaluates a row-local derivation. Grouped ops are not row-local and
// return missing here; the executor broadcasts them instead.
func (rd ResolvedDerivation) Compute(values []records.Value) records.Value {
	switch rd.Op {
	case DeriveScale:
		n, ok := values[rd.InputPos[0]].Number()
		if !ok {
			return records.Missing()
		}
		return records.NewNumeric(n * rd.Factor)
	case DeriveEpochSeconds:
		v := values[rd.InputPos[0]]
		if !v.IsTimestamp() {
			return records.Missing()
		}
		return records.NewNumeric(records.EpochSeconds(v.Time))
	case DeriveRatio, DeriveDifference, DeriveProduct:
		a, okA := values[rd.InputPos[0]].Ordinal()
		b, okB := values[rd.InputPos[1]].Ordinal()
		if !okA || !okB {
			return records.Missing()
		}
		switch rd.Op {
		case DeriveRatio:
			if b == 0 {
				return records.Missing()
			}
			return records.NewNumeric(a / b)
		case DeriveDifference:
			return records.NewNumeric(a - b)
		default:
			return records.NewNumeric(a * b)
		}
	}
	return records.Missing()
}

// Plan is a configuration resolved against a concrete input schema.
// Building a plan is the eager validation step: every ConfigError surfaces here.
type Plan struct {
	Config      *Config
	Input       *records.Schema
	Select      *Projection
	Drop        *Projection
	Conversions []ResolvedConversion
	Filters     []ResolvedFilter
	Remaps      []ResolvedRemap
	Derivations []ResolvedDerivation
	// RowSchema is the schema after the row-local stages (select through remap)
	RowSchema *records.Schema
	Output    *records.Schema
	// FeatureColumns are the numeric features prepared after the split
	FeatureColumns []string
	Hash           core.ConfigHash
	PlannedAt      time.Time
}

// Plan validates the configuration and resolves it against schema
func (c *Config) Plan(schema *records.Schema) (*Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hash, err := Fingerprint(c)
	if err != nil {
		return nil, err
	}
	p := &Plan{Config: c, Input: schema, Hash: hash, PlannedAt: time.Now()}
	s := schema

	if len(c.Select) > 0 {
		for _, name := range c.Select {
			if !s.Has(name) {
				return nil, unknownColumn("select", name)
			}
		}
		projected, positions, err := s.Project(c.Select)
		if err != nil {
			return nil, configErr("select", "", nil, "%v", err)
		}
		p.Select = &Projection{Schema: projected, Positions: positions}
		s = projected
	}

	if len(c.Drop) > 0 {
		for _, name := range c.Drop {
			if !s.Has(name) {
				return nil, unknownColumn("drop", name)
			}
		}
		kept, positions, err := s.Without(c.Drop)
		if err != nil {
			return nil, configErr("drop", "", nil, "%v", err)
		}
		p.Drop = &Projection{Schema: kept, Positions: positions}
		s = kept
	}

	for _, conv := range c.Convert {
		pos, spec, err := lookup("convert", s, conv.Column)
		if err != nil {
			return nil, err
		}
		switch conv.op() {
		case ConvertScale:
			if spec.Kind != records.KindNumeric {
				return nil, configErr("convert", conv.Column, nil, "scale needs a numeric column, got %s", spec.Kind)
			}
		case ConvertEpochSeconds:
			if spec.Kind != records.KindDatetime {
				return nil, configErr("convert", conv.Column, nil, "epoch_seconds needs a datetime column, got %s", spec.Kind)
			}
			if s, err = s.Replace(conv.Column, records.ColumnSpec{Name: conv.Column, Kind: records.KindNumeric}); err != nil {
				return nil, configErr("convert", conv.Column, nil, "%v", err)
			}
		}
		p.Conversions = append(p.Conversions, ResolvedConversion{Conversion: conv, Pos: pos})
	}

	for _, f := range c.Filters {
		pos, spec, err := lookup("filter", s, f.Column)
		if err != nil {
			return nil, err
		}
		if spec.Kind == records.KindCategorical {
			return nil, configErr("filter", f.Column, core.ErrInvalidBound, "range filters need a numeric or datetime column")
		}
		rf := ResolvedFilter{Filter: f, Pos: pos, lo: f.lower(), hi: f.upper()}
		if len(f.NotIn) > 0 {
			rf.notIn = make(map[float64]bool, len(f.NotIn))
			for _, x := range f.NotIn {
				rf.notIn[x] = true
			}
		}
		p.Filters = append(p.Filters, rf)
	}

	for _, r := range c.Remap {
		pos, spec, err := lookup("remap", s, r.Column)
		if err != nil {
			return nil, err
		}
		if spec.Kind == records.KindDatetime {
			return nil, configErr("remap", r.Column, core.ErrMapping, "datetime columns cannot be remapped")
		}
		for _, label := range spec.Labels {
			if _, ok := r.Codes[label]; !ok {
				return nil, configErr("remap", r.Column, core.ErrMapping, "declared label %q has no code", label)
			}
		}
		if s, err = s.Replace(r.Column, records.ColumnSpec{Name: r.Column, Kind: records.KindNumeric}); err != nil {
			return nil, configErr("remap", r.Column, nil, "%v", err)
		}
		p.Remaps = append(p.Remaps, ResolvedRemap{Remap: r, Pos: pos})
	}
	p.RowSchema = s

	for _, d := range c.Derive {
		if s.Has(d.Name) {
			return nil, configErr("derive", d.Name, core.ErrColumnConflict, "derived column collides with an existing column")
		}
		rd := ResolvedDerivation{Derivation: d, ByPos: -1}
		kinds := make([]records.ColumnKind, len(d.Inputs))
		for i, in := range d.Inputs {
			pos, spec, err := lookup("derive", s, in)
			if err != nil {
				return nil, err
			}
			rd.InputPos = append(rd.InputPos, pos)
			kinds[i] = spec.Kind
		}
		if err := checkDeriveKinds(d, kinds); err != nil {
			return nil, err
		}
		if d.Op.IsGrouped() {
			pos, _, err := lookup("derive", s, d.By)
			if err != nil {
				return nil, err
			}
			rd.ByPos = pos
		}
		if s, err = s.With(records.ColumnSpec{Name: d.Name, Kind: records.KindNumeric}); err != nil {
			return nil, configErr("derive", d.Name, core.ErrColumnConflict, "%v", err)
		}
		p.Derivations = append(p.Derivations, rd)
	}
	p.Output = s

	if c.Split != nil {
		if _, err := c.Split.Resolve(s); err != nil {
			return nil, err
		}
	}
	if c.Features != nil {
		if p.FeatureColumns, err = c.Features.Resolve(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func lookup(stage string, s *records.Schema, name string) (int, records.ColumnSpec, error) {
	pos, ok := s.Index(name)
	if !ok {
		return 0, records.ColumnSpec{}, unknownColumn(stage, name)
	}
	spec, _ := s.Column(name)
	return pos, spec, nil
}

func checkDeriveKinds(d Derivation, kinds []records.ColumnKind) error {
	switch d.Op {
	case DeriveEpochSeconds:
		if kinds[0] != records.KindDatetime {
			return configErr("derive", d.Name, nil, "epoch_seconds needs a datetime input")
		}
	case DeriveDifference:
		if kinds[0] == records.KindCategorical || kinds[0] != kinds[1] {
			return configErr("derive", d.Name, nil, "difference needs two numeric or two datetime inputs")
		}
	default:
		for i, k := range kinds {
			if k != records.KindNumeric {
				return configErr("derive", d.Name, nil, "input %q must be numeric, got %s", d.Inputs[i], k)
			}
		}
	}
	return nil
}
