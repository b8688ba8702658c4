package cleaning

import (
	"math"

	"tabclean/domain/core"
	"tabclean/domain/records"
)

// Validate checks the configuration on its own, independent of any data
func (c *Config) Validate() error {
	if err := checkNames("select", c.Select); err != nil {
		return err
	}
	if err := checkNames("drop", c.Drop); err != nil {
		return err
	}
	for _, conv := range c.Convert {
		if err := conv.validate(); err != nil {
			return err
		}
	}
	for _, f := range c.Filters {
		if err := f.validate(); err != nil {
			return err
		}
	}
	remapped := make(map[string]bool, len(c.Remap))
	for _, r := range c.Remap {
		if remapped[r.Column] {
			return configErr("remap", r.Column, core.ErrColumnConflict, "column remapped twice")
		}
		remapped[r.Column] = true
		if err := r.validate(); err != nil {
			return err
		}
	}
	derived := make(map[string]bool, len(c.Derive))
	for _, d := range c.Derive {
		if derived[d.Name] {
			return configErr("derive", d.Name, core.ErrColumnConflict, "derived column declared twice")
		}
		derived[d.Name] = true
		if err := d.validate(); err != nil {
			return err
		}
	}
	if c.Split != nil {
		if err := c.Split.Validate(); err != nil {
			return err
		}
	}
	if c.Features != nil {
		if err := c.Features.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func checkNames(stage string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return configErr(stage, "", nil, "empty column name")
		}
		if seen[n] {
			return configErr(stage, n, core.ErrColumnConflict, "column listed twice")
		}
		seen[n] = true
	}
	return nil
}

func (conv Conversion) validate() error {
	if conv.Column == "" {
		return configErr("convert", "", nil, "empty column name")
	}
	switch conv.op() {
	case ConvertScale:
		if conv.Factor == 0 || math.IsNaN(conv.Factor) || math.IsInf(conv.Factor, 0) {
			return configErr("convert", conv.Column, nil, "scale factor must be finite and non-zero")
		}
		if conv.Decimals != nil && (*conv.Decimals < 0 || *conv.Decimals > 15) {
			return configErr("convert", conv.Column, nil, "decimals must be in [0, 15]")
		}
	case ConvertEpochSeconds:
		if conv.Factor != 0 || conv.Decimals != nil {
			return configErr("convert", conv.Column, nil, "epoch_seconds takes no factor or decimals")
		}
	default:
		return configErr("convert", conv.Column, nil, "unknown conversion op %q", conv.Op)
	}
	return nil
}

func (conv Conversion) op() ConversionOp {
	if conv.Op == "" {
		return ConvertScale
	}
	return conv.Op
}

// bound is one side of a range
type bound struct {
	value     float64
	inclusive bool
	set       bool
}

func (f Filter) lower() bound {
	switch {
	case f.Eq != nil:
		return bound{*f.Eq, true, true}
	case f.Ge != nil:
		return bound{*f.Ge, true, true}
	case f.Gt != nil:
		return bound{*f.Gt, false, true}
	}
	return bound{}
}

func (f Filter) upper() bound {
	switch {
	case f.Eq != nil:
		return bound{*f.Eq, true, true}
	case f.Le != nil:
		return bound{*f.Le, true, true}
	case f.Lt != nil:
		return bound{*f.Lt, false, true}
	}
	return bound{}
}

func (f Filter) validate() error {
	if f.Column == "" {
		return configErr("filter", "", nil, "empty column name")
	}
	if f.Gt != nil && f.Ge != nil {
		return configErr("filter", f.Column, core.ErrInvalidBound, "both gt and ge set")
	}
	if f.Lt != nil && f.Le != nil {
		return configErr("filter", f.Column, core.ErrInvalidBound, "both lt and le set")
	}
	if f.Eq != nil && (f.Gt != nil || f.Ge != nil || f.Lt != nil || f.Le != nil) {
		return configErr("filter", f.Column, core.ErrInvalidBound, "eq cannot be combined with other bounds")
	}
	lo, hi := f.lower(), f.upper()
	if !lo.set && !hi.set && len(f.NotIn) == 0 {
		return configErr("filter", f.Column, core.ErrInvalidBound, "filter has no bound")
	}
	for _, b := range []bound{lo, hi} {
		if b.set && (math.IsNaN(b.value) || math.IsInf(b.value, 0)) {
			return configErr("filter", f.Column, core.ErrInvalidBound, "bound must be finite")
		}
	}
	if lo.set && hi.set {
		if lo.value > hi.value {
			return configErr("filter", f.Column, core.ErrInvalidBound, "min %g > max %g", lo.value, hi.value)
		}
		if lo.value == hi.value && !(lo.inclusive && hi.inclusive) {
			return configErr("filter", f.Column, core.ErrInvalidBound, "range (%g, %g) is empty", lo.value, hi.value)
		}
	}
	return nil
}

func (r Remap) validate() error {
	if r.Column == "" {
		return configErr("remap", "", nil, "empty column name")
	}
	if len(r.Codes) == 0 {
		return configErr("remap", r.Column, core.ErrMapping, "mapping is empty")
	}
	byCode := make(map[int]string, len(r.Codes))
	for label, code := range r.Codes {
		if label == "" {
			return configErr("remap", r.Column, core.ErrMapping, "empty label")
		}
		if other, dup := byCode[code]; dup {
			return configErr("remap", r.Column, core.ErrMapping, "labels %q and %q share code %d", other, label, code)
		}
		byCode[code] = label
	}
	return nil
}

func (d Derivation) validate() error {
	if d.Name == "" {
		return configErr("derive", "", nil, "derived column has no name")
	}
	want, known := arity[d.Op]
	if !known {
		return configErr("derive", d.Name, nil, "unknown op %q", d.Op)
	}
	if len(d.Inputs) != want {
		return configErr("derive", d.Name, nil, "op %s takes %d inputs, got %d", d.Op, want, len(d.Inputs))
	}
	if d.Op == DeriveScale && (d.Factor == 0 || math.IsNaN(d.Factor) || math.IsInf(d.Factor, 0)) {
		return configErr("derive", d.Name, nil, "scale factor must be finite and non-zero")
	}
	if d.Op.IsGrouped() && d.By == "" {
		return configErr("derive", d.Name, nil, "op %s requires a group column", d.Op)
	}
	if !d.Op.IsGrouped() && d.By != "" {
		return configErr("derive", d.Name, nil, "op %s does not take a group column", d.Op)
	}
	return nil
}

// Validate checks the split policy on its own
func (p SplitPolicy) Validate() error {
	if math.IsNaN(p.TestFraction) || p.TestFraction <= 0 || p.TestFraction >= 1 {
		return configErr("split", "", core.ErrInvalidSplit, "test fraction %g is outside (0, 1)", p.TestFraction)
	}
	return nil
}

// Resolve validates the policy against schema and returns the stratify column's
// position, or -1 for a plain split
func (p SplitPolicy) Resolve(schema *records.Schema) (int, error) {
	if err := p.Validate(); err != nil {
		return -1, err
	}
	if p.Stratify == "" {
		return -1, nil
	}
	pos, ok := schema.Index(p.Stratify)
	if !ok {
		return -1, unknownColumn("split", p.Stratify)
	}
	return pos, nil
}

// Validate checks the feature preparation on its own
func (f FeaturePrep) Validate() error {
	if f.Target == "" {
		return configErr("features", "", nil, "a target column is required")
	}
	if err := checkNames("features", f.Exclude); err != nil {
		return err
	}
	if err := checkNames("features", f.OneHot); err != nil {
		return err
	}
	excluded := make(map[string]bool, len(f.Exclude))
	for _, name := range f.Exclude {
		if name == f.Target {
			return configErr("features", name, core.ErrColumnConflict, "the target cannot be excluded")
		}
		excluded[name] = true
	}
	for _, name := range f.OneHot {
		if name == f.Target {
			return configErr("features", name, core.ErrColumnConflict, "the target cannot be one-hot encoded")
		}
		if excluded[name] {
			return configErr("features", name, core.ErrColumnConflict, "column is both excluded and one-hot encoded")
		}
	}
	if f.Scale && !f.ImputeMedian {
		return configErr("features", "", nil, "scale requires impute_median")
	}
	return nil
}

// Resolve checks the feature preparation against the cleaned schema and returns
// the numeric feature columns: every column except the target, the excluded and
// the one-hot encoded ones. Those columns must be numeric.
func (f FeaturePrep) Resolve(schema *records.Schema) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	_, target, err := lookup("features", schema, f.Target)
	if err != nil {
		return nil, err
	}
	if target.Kind != records.KindNumeric {
		return nil, configErr("features", f.Target, nil, "target must be numeric, got %s", target.Kind)
	}
	skip := map[string]bool{f.Target: true}
	for _, name := range append(append([]string(nil), f.Exclude...), f.OneHot...) {
		if !schema.Has(name) {
			return nil, unknownColumn("features", name)
		}
		skip[name] = true
	}
	var numeric []string
	for _, col := range schema.Columns() {
		if skip[col.Name] {
			continue
		}
		if col.Kind != records.KindNumeric {
			return nil, configErr("features", col.Name, nil, "feature columns must be numeric, got %s; exclude or one-hot encode it", col.Kind)
		}
		numeric = append(numeric, col.Name)
	}
	return numeric, nil
}
