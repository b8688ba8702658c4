package tabular

import (
	"tabclean/adapters/coercer"
	"tabclean/domain/records"
)

// ReaderConfig holds configuration for a delimited-text or Excel record source
type ReaderConfig struct {
	Path string `json:"path" yaml:"path"`
	// Sheet names the Excel sheet to read; empty reads the first sheet
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	// Columns declares kinds for named header columns; undeclared columns are inferred
	Columns   []records.ColumnSpec   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Coercion  coercer.CoercionConfig `json:"coercion" yaml:"coercion"`
	Delimiter rune                   `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	// SampleSize is the number of leading data rows used for kind inference
	SampleSize int `json:"sample_size" yaml:"sample_size"`
}

// DefaultReaderConfig returns sensible defaults for path
func DefaultReaderConfig(path string) ReaderConfig {
	return ReaderConfig{
		Path:       path,
		Coercion:   coercer.DefaultCoercionConfig(),
		Delimiter:  ',',
		SampleSize: 500,
	}
}
