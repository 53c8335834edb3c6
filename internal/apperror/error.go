// Package apperror provides structured, code-tagged errors shared by all
// bounded contexts. Errors compare by code through errors.Is so callers can
// branch on failure kind without string matching.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AppError implements the error interface and carries a stable error code.
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches AppErrors by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// StatusCode maps the error code to an HTTP status for API responses.
func (e *AppError) StatusCode() int {
	switch {
	case strings.Contains(string(e.Code), "NOT_FOUND"):
		return http.StatusNotFound
	case e.Code == CodePoolExists:
		return http.StatusConflict
	case strings.Contains(string(e.Code), "INVALID"),
		e.Code == CodeDeadlineExpired,
		e.Code == CodeSlippageExceeded:
		return http.StatusBadRequest
	case e.Code == CodeQuoteFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Option is a functional option for AppError.
type Option func(*AppError)

// WithMessage sets a custom message.
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information.
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithContextf adds formatted context information.
func WithContextf(format string, args ...any) Option {
	return func(e *AppError) {
		e.Context = fmt.Sprintf(format, args...)
	}
}

// WithCause wraps an underlying error.
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// New creates a new AppError with the given code and options.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Timestamp: time.Now(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Wrap wraps a standard error into an AppError. Existing AppErrors pass
// through unchanged so token-book failures propagate verbatim.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return New(code, WithContext(context), WithCause(err))
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}
