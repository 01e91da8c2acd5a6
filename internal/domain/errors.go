package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks. Every typed error below unwraps to one.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrState      = errors.New("illegal state transition")
)

// ValidationError reports malformed origin or candidate data. Record names
// the offending origin record (answer, vulnerability, item).
type ValidationError struct {
	Record string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Record != "" && e.Field != "":
		return fmt.Sprintf("invalid %s on %s: %s", e.Field, e.Record, e.Reason)
	case e.Record != "":
		return fmt.Sprintf("invalid %s: %s", e.Record, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	default:
		return "invalid input: " + e.Reason
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(record, field, reason string) *ValidationError {
	return &ValidationError{Record: record, Field: field, Reason: reason}
}

// ConflictError reports a lost race on a unique resource (a code, a plan
// origin, an item publication).
type ConflictError struct {
	Resource string
	Key      string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict on %s %q: %v", e.Resource, e.Key, e.Err)
	}
	return fmt.Sprintf("conflict on %s %q", e.Resource, e.Key)
}

func (e *ConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConflict, e.Err}
	}
	return []error{ErrConflict}
}

// NotFoundError reports a reference to a missing plan, item, origin or action.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError reports an operation that is not legal from the current status.
type StateError struct {
	Entity string
	ID     string
	Status string
	Op     string
}

func (e *StateError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("cannot %s %s in status %s", e.Op, e.Entity, e.Status)
	}
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Op, e.Entity, e.ID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrState }
