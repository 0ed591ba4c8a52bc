package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every ValidationError via errors.Is.
var ErrInvalid = errors.New("config: invalid value")

// ValidationError reports a configuration field that rejected a value.
type ValidationError struct {
	Field  string // Field name as it appears on the wire (e.g. "temperature").
	Value  any    // The rejected value.
	Reason string // Human readable explanation.
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(field string, value any, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
