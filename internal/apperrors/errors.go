// Package apperrors provides sentinel and custom error types for the application.
package apperrors

import "fmt"

// ErrValidation represents a validation error.
// Use when user input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// Pipeline stages reported by UpstreamError.
const (
	StageEmbedding  = "embedding"
	StageSearch     = "search"
	StageCompletion = "completion"
)

// ErrUpstream is the sentinel for failures of an external service call.
var ErrUpstream = &UpstreamError{}

// UpstreamError reports that an external service (embedding, search or
// completion) failed. Err is the underlying transport or service error.
type UpstreamError struct {
	Stage string
	Err   error
}

// NewUpstreamError wraps err as a failure of the given pipeline stage.
func NewUpstreamError(stage string, err error) *UpstreamError {
	return &UpstreamError{Stage: stage, Err: err}
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Stage == "" {
		if e.Err == nil {
			return "upstream error"
		}

		return "upstream: " + e.Err.Error()
	}

	if e.Err == nil {
		return e.Stage + " failed"
	}

	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches any *UpstreamError target whose Stage is empty or equal to e.Stage.
func (e *UpstreamError) Is(target error) bool {
	t, ok := target.(*UpstreamError)
	if !ok {
		return false
	}

	return t.Stage == "" || t.Stage == e.Stage
}
