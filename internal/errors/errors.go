package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving the original code
// when the cause is already an AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given application error code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes. The engine's taxonomy:
//   - validation errors are rejected immediately and never retried
//   - transient collaborator errors leave state untouched and are retried on
//     the next scheduler pass or by explicit operator action
//   - conflicts mean the caller raced a concurrent writer and must re-fetch
//   - invalid transitions mean an illegal state-machine edge was requested
const (
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeTransientCollaborator = "TRANSIENT_COLLABORATOR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: CodeDatabaseError, Message: "database operation failed", Cause: err}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func InvalidTransition(message string) *AppError {
	return New(CodeInvalidTransition, message)
}

// TransientCollaborator wraps a failed call to an external collaborator
// (mail, classifier, billing). State is left as it was before the call and
// the operation is safe to retry.
func TransientCollaborator(collaborator string, cause error) *AppError {
	return &AppError{
		Code:    CodeTransientCollaborator,
		Message: fmt.Sprintf("%s collaborator unavailable", collaborator),
		Cause:   cause,
	}
}

// Classification helpers

func IsValidation(err error) bool        { return HasCode(err, CodeValidationError) }
func IsNotFound(err error) bool          { return HasCode(err, CodeNotFound) }
func IsConflict(err error) bool          { return HasCode(err, CodeConflict) }
func IsInvalidTransition(err error) bool { return HasCode(err, CodeInvalidTransition) }
func IsTransient(err error) bool         { return HasCode(err, CodeTransientCollaborator) }
