package cleaning

import (
	"tabclean/domain/records"
)

// Config is the declarative description of one cleaning pipeline.
// Stages always run in the fixed order select, drop, convert, filters, remap, derive;
// the split policy is applied separately.
type Config struct {
	Name string `yaml:"name" json:"name"`
	// Columns declares the source schema. Readers use it to coerce raw cells;
	// when empty the schema is inferred from the data.
	Columns []records.ColumnSpec `yaml:"columns,omitempty" json:"columns,omitempty"`
	Select  []string             `yaml:"select,omitempty" json:"select,omitempty"`
	Drop    []string             `yaml:"drop,omitempty" json:"drop,omitempty"`
	Convert []Conversion         `yaml:"convert,omitempty" json:"convert,omitempty"`
	Filters []Filter             `yaml:"filters,omitempty" json:"filters,omitempty"`
	Remap   []Remap              `yaml:"remap,omitempty" json:"remap,omitempty"`
	Derive  []Derivation         `yaml:"derive,omitempty" json:"derive,omitempty"`
	Split   *SplitPolicy         `yaml:"split,omitempty" json:"split,omitempty"`
	// Features prepares model inputs from the partitions; nil stops after the split
	Features *FeaturePrep `yaml:"features,omitempty" json:"features,omitempty"`
}

// ConversionOp selects how a column is converted in place
type ConversionOp string

const (
	// ConvertScale multiplies a numeric column by Factor, optionally rounding
	ConvertScale ConversionOp = "scale"
	// ConvertEpochSeconds turns a datetime column into seconds since the Unix epoch
	ConvertEpochSeconds ConversionOp = "epoch_seconds"
)

// Conversion rewrites a column's values in place before filtering,
// so filter thresholds are expressed in converted units.
type Conversion struct {
	Column string       `yaml:"column" json:"column"`
	Op     ConversionOp `yaml:"op,omitempty" json:"op,omitempty"`
	Factor float64      `yaml:"factor,omitempty" json:"factor,omitempty"`
	// Decimals rounds the scaled value half-to-even; nil keeps full precision
	Decimals *int `yaml:"decimals,omitempty" json:"decimals,omitempty"`
}

// Filter keeps rows whose value in Column satisfies every configured bound.
// Bounds may be one-sided or two-sided; Eq is shorthand for Ge == Le.
// NotIn excludes specific values.
type Filter struct {
	Column string    `yaml:"column" json:"column"`
	Gt     *float64  `yaml:"gt,omitempty" json:"gt,omitempty"`
	Ge     *float64  `yaml:"ge,omitempty" json:"ge,omitempty"`
	Lt     *float64  `yaml:"lt,omitempty" json:"lt,omitempty"`
	Le     *float64  `yaml:"le,omitempty" json:"le,omitempty"`
	Eq     *float64  `yaml:"eq,omitempty" json:"eq,omitempty"`
	NotIn  []float64 `yaml:"not_in,omitempty" json:"not_in,omitempty"`
}

// Remap replaces each label of a categorical column with an integer code
type Remap struct {
	Column string         `yaml:"column" json:"column"`
	Codes  map[string]int `yaml:"codes" json:"codes"`
}

// Inverse returns the code to label map
func (r Remap) Inverse() map[int]string {
	inv := make(map[int]string, len(r.Codes))
	for label, code := range r.Codes {
		inv[code] = label
	}
	return inv
}

// DeriveOp names a derived-column formula
type DeriveOp string

const (
	DeriveRatio        DeriveOp = "ratio"
	DeriveDifference   DeriveOp = "difference"
	DeriveProduct      DeriveOp = "product"
	DeriveScale        DeriveOp = "scale"
	DeriveGroupMedian  DeriveOp = "group_median"
	DeriveGroupMean    DeriveOp = "group_mean"
	DeriveEpochSeconds DeriveOp = "epoch_seconds"
)

// arity is the number of inputs each op reads
var arity = map[DeriveOp]int{
	DeriveRatio:        2,
	DeriveDifference:   2,
	DeriveProduct:      2,
	DeriveScale:        1,
	DeriveGroupMedian:  1,
	DeriveGroupMean:    1,
	DeriveEpochSeconds: 1,
}

// IsGrouped reports whether the op needs a per-group pass before broadcasting
func (op DeriveOp) IsGrouped() bool {
	return op == DeriveGroupMedian || op == DeriveGroupMean
}

// Derivation appends a numeric column computed from existing columns
type Derivation struct {
	Name   string   `yaml:"name" json:"name"`
	Op     DeriveOp `yaml:"op" json:"op"`
	Inputs []string `yaml:"inputs" json:"inputs"`
	Factor float64  `yaml:"factor,omitempty" json:"factor,omitempty"`
	By     string   `yaml:"by,omitempty" json:"by,omitempty"`
}

// SplitPolicy controls the train/test partition
type SplitPolicy struct {
	TestFraction float64 `yaml:"test_fraction" json:"test_fraction"`
	Seed         int64   `yaml:"seed" json:"seed"`
	Stratify     string  `yaml:"stratify,omitempty" json:"stratify,omitempty"`
}

// FeaturePrep turns the cleaned partitions into model inputs: the feature columns X
// and the numeric target y. Medians, scaling statistics and categories are learned
// on the training partition and reused for the test partition.
type FeaturePrep struct {
	Target string `yaml:"target" json:"target"`
	// Exclude lists columns left out of X
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	// ImputeMedian fills missing feature values with the training medians
	ImputeMedian bool `yaml:"impute_median,omitempty" json:"impute_median,omitempty"`
	// OneHot lists columns expanded into indicator columns
	OneHot []string `yaml:"one_hot,omitempty" json:"one_hot,omitempty"`
	// Scale standardizes the numeric features that are not one-hot encoded
	Scale bool `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// Schema builds the declared source schema
func (c *Config) Schema() (*records.Schema, error) {
	return records.NewSchema(c.Columns...)
}

func f64(v float64) *float64 { return &v }

// Below keeps values strictly less than max
func Below(column string, max float64) Filter { return Filter{Column: column, Lt: f64(max)} }

// AtMost keeps values less than or equal to max
func AtMost(column string, max float64) Filter { return Filter{Column: column, Le: f64(max)} }

// Above keeps values strictly greater than min
func Above(column string, min float64) Filter { return Filter{Column: column, Gt: f64(min)} }

// AtLeast keeps values greater than or equal to min
func AtLeast(column string, min float64) Filter { return Filter{Column: column, Ge: f64(min)} }

// Within keeps values in [min, max)
func Within(column string, min, max float64) Filter {
	return Filter{Column: column, Ge: f64(min), Lt: f64(max)}
}

// Equals keeps values equal to v
func Equals(column string, v float64) Filter { return Filter{Column: column, Eq: f64(v)} }

// Excluding drops rows whose value is one of values
func Excluding(column string, values ...float64) Filter {
	return Filter{Column: column, NotIn: values}
}
