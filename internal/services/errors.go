package services

import (
	"errors"
	"fmt"
)

// ErrPersistence wraps every failed store write and profile read.
var ErrPersistence = errors.New("persistence failure")

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

func invalidField(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func persistenceError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, operation, err)
}
