package cleaning

import (
	"fmt"

	"tabclean/domain/core"
)

// ConfigError reports an inconsistent configuration or a configuration that does not
// fit the data schema. It is always raised before any row is processed.
type ConfigError struct {
	Stage  string
	Column string
	Reason string
	kind   error
}

func (e *ConfigError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("config error in %s (column %q): %s", e.Stage, e.Column, e.Reason)
	}
	return fmt.Sprintf("config error in %s: %s", e.Stage, e.Reason)
}

// Unwrap exposes the core sentinel so callers can use errors.Is
func (e *ConfigError) Unwrap() error {
	if e.kind == nil {
		return core.ErrInvalidConfig
	}
	return e.kind
}

func configErr(stage, column string, kind error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Stage: stage, Column: column, Reason: fmt.Sprintf(format, args...), kind: kind}
}

func unknownColumn(stage, column string) *ConfigError {
	return configErr(stage, column, core.ErrUnknownColumn, "column does not exist")
}
