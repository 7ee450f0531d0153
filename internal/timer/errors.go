package timer

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors surfaced to callers.
type ErrorCode string

const (
	// ErrCodeValidation indicates rejected input; no state changed.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates an operation referenced an unknown timer.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// ValidationError reports input that was rejected at the boundary.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Code returns ErrCodeValidation.
func (e *ValidationError) Code() ErrorCode { return ErrCodeValidation }

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrCodeValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrCodeValidation, e.Field, e.Message)
}

// NotFoundError reports an operation on an id the store does not hold.
type NotFoundError struct {
	ID ID
}

// NewNotFoundError creates a NotFoundError for id.
func NewNotFoundError(id ID) *NotFoundError {
	return &NotFoundError{ID: id}
}

// Code returns ErrCodeNotFound.
func (e *NotFoundError) Code() ErrorCode { return ErrCodeNotFound }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: timer %q", ErrCodeNotFound, e.ID)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
