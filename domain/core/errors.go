package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors are detected before any row is processed
	ErrInvalidConfig  = errors.New("invalid cleaning configuration")
	ErrUnknownColumn  = fmt.Errorf("%w: unknown column", ErrInvalidConfig)
	ErrInvalidBound   = fmt.Errorf("%w: invalid bound", ErrInvalidConfig)
	ErrInvalidSplit   = fmt.Errorf("%w: invalid split policy", ErrInvalidConfig)
	ErrColumnConflict = fmt.Errorf("%w: column name conflict", ErrInvalidConfig)
	ErrMapping        = fmt.Errorf("%w: categorical mapping", ErrInvalidConfig)

	// Source errors
	ErrEmptySource     = errors.New("record source is empty")
	ErrUnsupportedType = errors.New("unsupported source type")

	// Feature errors
	ErrMissingValue     = errors.New("missing value in design matrix")
	ErrNonNumericColumn = errors.New("column is not numeric")
	ErrNotFitted        = errors.New("transformer is not fitted")
)

// NewUnknownColumnError reports a configuration reference to a column the schema lacks
func NewUnknownColumnError(stage, column string) error {
	return fmt.Errorf("%w %q referenced by %s", ErrUnknownColumn, column, stage)
}

// IsConfigError reports whether err stems from an invalid configuration
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsMappingError reports whether err stems from an incomplete categorical mapping
func IsMappingError(err error) bool {
	return errors.Is(err, ErrMapping)
}
