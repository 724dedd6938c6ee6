package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Request
	ErrCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// Routing
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func InvalidJSON() *AppError {
	return New(ErrCodeInvalidJSON, "invalid json")
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// MissingRequired lists every field the caller must supply, not only the absent ones.
func MissingRequired(fields ...string) *AppError {
	if len(fields) == 1 {
		return New(ErrCodeMissingRequired, fmt.Sprintf("missing %s", fields[0]))
	}
	return New(ErrCodeMissingRequired, "missing required fields: "+strings.Join(fields, ", "))
}

func PayloadTooLarge() *AppError {
	return New(ErrCodePayloadTooLarge, "request body too large")
}

func NotFound() *AppError {
	return New(ErrCodeNotFound, "not found")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "rate limit exceeded")
}

func Timeout() *AppError {
	return New(ErrCodeTimeout, "request timed out")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Database surfaces the storage failure message to the caller.
func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, fmt.Sprintf("database error: %v", cause), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
