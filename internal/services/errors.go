package services

import "fmt"

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %v", e.Fields)
}

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ForbiddenError reports that the record exists but belongs to another user.
type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// InvalidStateError reports a session or break transition attempted from a
// state that does not allow it.
type InvalidStateError struct {
	Message string
	Err     error
}

func (e *InvalidStateError) Error() string { return e.Message }

func (e *InvalidStateError) Unwrap() error { return e.Err }
