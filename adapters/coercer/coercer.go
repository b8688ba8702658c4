package coercer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tabclean/domain/records"
)

// TypeCoercer handles deterministic coercion of raw cells into declared column kinds
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold   float64  `json:"numeric_threshold" yaml:"numeric_threshold"`     // share of non-missing samples that must parse as numbers
	TimestampThreshold float64  `json:"timestamp_threshold" yaml:"timestamp_threshold"` // share that must parse as timestamps
	MissingTokens      []string `json:"missing_tokens" yaml:"missing_tokens"`           // cells treated as missing, case-insensitive
	TrimLabels         bool     `json:"trim_labels" yaml:"trim_labels"`
}

// IsZero reports whether no coercion setting was given
func (c CoercionConfig) IsZero() bool {
	return c.NumericThreshold == 0 && c.TimestampThreshold == 0 && c.MissingTokens == nil && !c.TrimLabels
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold:   0.95,
		TimestampThreshold: 0.9,
		MissingTokens:      []string{"", "na", "n/a", "nan", "null", "none", "-"},
		TrimLabels:         true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// IsMissingToken reports whether raw denotes a missing cell
func (c *TypeCoercer) IsMissingToken(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, tok := range c.config.MissingTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// Coerce converts a raw cell into a Value of the column's declared kind.
// Cells that do not parse under the declared kind become missing.
func (c *TypeCoercer) Coerce(raw string, spec records.ColumnSpec) records.Value {
	if c.IsMissingToken(raw) {
		return records.Missing()
	}
	switch spec.Kind {
	case records.KindNumeric:
		if n, ok := c.ParseNumeric(raw); ok {
			return records.NewNumeric(n)
		}
		return records.Missing()
	case records.KindDatetime:
		if t, ok := c.ParseTimestamp(raw, spec.Layout); ok {
			return records.NewTimestamp(t)
		}
		return records.Missing()
	default:
		if c.config.TrimLabels {
			raw = strings.TrimSpace(raw)
		}
		return records.NewLabel(raw)
	}
}

// CoerceAny converts a driver-native value (as produced by database/sql scans) into a Value
func (c *TypeCoercer) CoerceAny(raw interface{}, spec records.ColumnSpec) records.Value {
	switch v := raw.(type) {
	case nil:
		return records.Missing()
	case time.Time:
		if spec.Kind == records.KindDatetime {
			return records.NewTimestamp(v)
		}
		return c.Coerce(v.Format(time.RFC3339), spec)
	case float64:
		if spec.Kind == records.KindNumeric {
			return records.NewNumeric(v)
		}
	case float32:
		if spec.Kind == records.KindNumeric {
			return records.NewNumeric(float64(v))
		}
	case int64:
		if spec.Kind == records.KindNumeric {
			return records.NewNumeric(float64(v))
		}
	case int:
		if spec.Kind == records.KindNumeric {
			return records.NewNumeric(float64(v))
		}
	case []byte:
		return c.Coerce(string(v), spec)
	case string:
		return c.Coerce(v, spec)
	}
	return c.Coerce(c.toString(raw), spec)
}

// ParseNumeric parses a number with lenient formatting:
// parentheses for negatives, currency symbols, thousands separators, European decimals.
func (c *TypeCoercer) ParseNumeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "USD", "EUR", "GBP", "JPY"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		commaIdx := strings.LastIndex(cleanVal, ",")
		periodIdx := strings.LastIndex(cleanVal, ".")
		if commaIdx > periodIdx {
			// 1.234,56 or 1 234,56
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			// 1,234.56
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	case hasComma:
		// a single comma followed by one or two digits is a decimal comma (12,5);
		// otherwise commas separate thousands (1,234 or 1,234,567)
		commaIdx := strings.Index(cleanVal, ",")
		if strings.Count(cleanVal, ",") == 1 && len(cleanVal)-commaIdx-1 <= 2 {
			cleanVal = strings.Replace(cleanVal, ",", ".", 1)
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
		}
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseTimestamp parses raw with layout, or with the known layouts when layout is empty
func (c *TypeCoercer) ParseTimestamp(raw, layout string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if layout != "" {
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InferKind picks a column kind from a sample of raw cells
func (c *TypeCoercer) InferKind(samples []string) records.ColumnKind {
	analysis := c.AnalyzeTypeDistribution(samples)
	return analysis.RecommendedKind
}

// AnalyzeTypeDistribution counts how many samples parse under each kind
func (c *TypeCoercer) AnalyzeTypeDistribution(samples []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(samples)}
	for _, raw := range samples {
		if c.IsMissingToken(raw) {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.ParseNumeric(raw); ok {
			analysis.NumericCount++
		}
		if _, ok := c.ParseTimestamp(raw, ""); ok {
			analysis.TimestampCount++
		}
	}
	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedKind = c.determineRecommendedKind(analysis)
	return analysis
}

func (c *TypeCoercer) determineRecommendedKind(analysis TypeAnalysis) records.ColumnKind {
	if analysis.ValidCount == 0 {
		return records.KindCategorical
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return records.KindNumeric
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return records.KindDatetime
	}
	return records.KindCategorical
}

// toString converts interface{} to string safely
func (c *TypeCoercer) toString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int                `json:"total_count"`
	ValidCount      int                `json:"valid_count"`
	NumericCount    int                `json:"numeric_count"`
	TimestampCount  int                `json:"timestamp_count"`
	NumericRatio    float64            `json:"numeric_ratio"`
	TimestampRatio  float64            `json:"timestamp_ratio"`
	RecommendedKind records.ColumnKind `json:"recommended_kind"`
}
