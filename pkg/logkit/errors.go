package logkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = errors.New("invalid logkit config")

	// ErrNotInitialized is returned by package functions before Init.
	ErrNotInitialized = errors.New("logkit not initialized")
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string // Config field at fault
	Message string // What is wrong with it
	Err     error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("logkit config %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("logkit config %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(field, message string) error {
	return &ConfigError{Field: field, Message: message}
}
