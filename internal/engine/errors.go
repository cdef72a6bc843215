// Package engine implements the long-term memory pipeline: trigger
// evaluation, context assembly, extraction, conflict resolution, confidence
// decay, and insight regeneration.
package engine

import "fmt"

// ValidationKind classifies a rejection so the HTTP layer can pick a status
// code without string-matching reasons.
type ValidationKind int

const (
	// ValidationInvalid marks malformed input (bad action value, missing
	// user id).
	ValidationInvalid ValidationKind = iota
	// ValidationForbidden marks a record outside the caller's scopes.
	ValidationForbidden
	// ValidationNotFound marks a reference to a record that does not exist.
	ValidationNotFound
)

// ValidationError is returned from user-facing memory actions that reference
// an unknown record, a mismatched scope, or an invalid action value. Unlike
// the automated pipeline's provider and parse failures, validation errors
// propagate to the caller as explicit rejections.
type ValidationError struct {
	Kind   ValidationKind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationInvalid error for the given field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: ValidationInvalid, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewForbiddenError builds a ValidationForbidden error for the given field.
func NewForbiddenError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: ValidationForbidden, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewNotFoundError builds a ValidationNotFound error for the given field.
func NewNotFoundError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: ValidationNotFound, Field: field, Reason: fmt.Sprintf(format, args...)}
}
