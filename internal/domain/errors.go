package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a raw alert cannot be normalized into a canonical alert
	ErrValidation = errors.New("validation failed")

	// ErrConstraintViolation is returned when a row breaks a store-level constraint (duplicate or invalid row)
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStoreUnavailable is returned on I/O, lock or connection failures; callers may retry
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSchema is returned when the existing database schema is incompatible
	ErrSchema = errors.New("incompatible schema")

	// ErrSourceUnavailable is returned when an alert source cannot be reached or fails mid-stream
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidConfig is returned when a filter configuration is rejected before any query executes
	ErrInvalidConfig = errors.New("invalid filter config")

	// ErrProcessorFailure is returned when a processor fails during a runner pass
	ErrProcessorFailure = errors.New("processor failure")

	// ErrNotFound is returned when a looked up record does not exist
	ErrNotFound = errors.New("not found")

	// ErrOutOfOrder is returned when a sighting is older than the last sighting of the same detection
	ErrOutOfOrder = errors.New("sighting out of chronological order")

	// ErrDuplicateProcessor is returned when a processor name is registered twice
	ErrDuplicateProcessor = errors.New("processor already registered")

	// ErrReadOnlyQuery is returned when a raw query is not a single read-only statement
	ErrReadOnlyQuery = errors.New("only single read-only statements are allowed")
)

// ValidationError names the field that made a raw alert invalid
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for a field
func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
