package records

import (
	"math"
	"strconv"
	"time"
)

// ValueKind defines the storage type for values
type ValueKind string

const (
	ValueNumeric   ValueKind = "numeric"
	ValueLabel     ValueKind = "label"
	ValueTimestamp ValueKind = "timestamp"
	ValueMissing   ValueKind = "missing"
)

// MissingKey is the grouping key shared by all missing values
const MissingKey = "<missing>"

// Value represents one typed cell of a record set
type Value struct {
	Kind  ValueKind `json:"kind"`
	Num   float64   `json:"num,omitempty"`
	Label string    `json:"label,omitempty"`
	Time  time.Time `json:"time,omitempty"`
}

// NewNumeric creates a numeric value. NaN and infinities are stored as missing.
func NewNumeric(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Missing()
	}
	return Value{Kind: ValueNumeric, Num: n}
}

// NewLabel creates a category label value
func NewLabel(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Kind: ValueLabel, Label: s}
}

// NewTimestamp creates a timestamp value
func NewTimestamp(t time.Time) Value {
	if t.IsZero() {
		return Missing()
	}
	return Value{Kind: ValueTimestamp, Time: t}
}

// Missing creates a missing value
func Missing() Value {
	return Value{Kind: ValueMissing}
}

// IsMissing reports whether the value carries no data
func (v Value) IsMissing() bool {
	return v.Kind == ValueMissing || v.Kind == ""
}

// IsNumeric returns true if the value represents a valid number
func (v Value) IsNumeric() bool {
	return v.Kind == ValueNumeric
}

// IsLabel returns true if the value is a category label
func (v Value) IsLabel() bool {
	return v.Kind == ValueLabel
}

// IsTimestamp returns true if the value represents a valid timestamp
func (v Value) IsTimestamp() bool {
	return v.Kind == ValueTimestamp
}

// Number returns the numeric value and whether it was numeric
func (v Value) Number() (float64, bool) {
	if v.Kind != ValueNumeric {
		return 0, false
	}
	return v.Num, true
}

// Ordinal returns a float usable for ordering comparisons.
// Timestamps order by Unix seconds (with fractional part).
func (v Value) Ordinal() (float64, bool) {
	switch v.Kind {
	case ValueNumeric:
		return v.Num, true
	case ValueTimestamp:
		return EpochSeconds(v.Time), true
	}
	return 0, false
}

// Key returns a stable string used for grouping and stratification
func (v Value) Key() string {
	switch v.Kind {
	case ValueNumeric:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValueLabel:
		return v.Label
	case ValueTimestamp:
		return v.Time.UTC().Format(time.RFC3339Nano)
	}
	return MissingKey
}

// String renders the value for delimited output; missing values render empty
func (v Value) String() string {
	switch v.Kind {
	case ValueNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueLabel:
		return v.Label
	case ValueTimestamp:
		return v.Time.Format(time.RFC3339Nano)
	}
	return ""
}

// Equal compares kind and payload
func (v Value) Equal(o Value) bool {
	if v.IsMissing() || o.IsMissing() {
		return v.IsMissing() && o.IsMissing()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueNumeric:
		return v.Num == o.Num
	case ValueLabel:
		return v.Label == o.Label
	case ValueTimestamp:
		return v.Time.Equal(o.Time)
	}
	return false
}

// EpochSeconds converts t to seconds since the Unix epoch
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
