package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig signals a configuration value that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownField signals a field name absent from both collections.
	ErrUnknownField = errors.New("unknown field")
	// ErrDuplicateID signals a record identifier seen twice in one collection.
	ErrDuplicateID = errors.New("duplicate record id")
)

// ConfigError wraps ErrInvalidConfig with the offending parameter.
type ConfigError struct {
	Param   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig.Error(), e.Param, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// NewConfigError creates a configuration error for param.
func NewConfigError(param, format string, args ...any) error {
	return &ConfigError{Param: param, Message: fmt.Sprintf(format, args...)}
}
