// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrConnectivity indicates the iCress portal was unreachable or timed out.
	// Transport-level failures (DNS, refused connection, TLS, timeout) are all
	// normalized to this error at the client boundary.
	ErrConnectivity = errors.New("unable to connect with UiTM iCress")

	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// PortalError represents iCress portal request failures with context.
type PortalError struct {
	Route      string
	StatusCode int
	Err        error
}

func (e *PortalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("portal error (route=%s, status=%d): %v", e.Route, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("portal error (route=%s): %v", e.Route, e.Err)
}

func (e *PortalError) Unwrap() error {
	return e.Err
}

// NewPortalError creates a new portal error.
func NewPortalError(route string, statusCode int, err error) *PortalError {
	return &PortalError{
		Route:      route,
		StatusCode: statusCode,
		Err:        err,
	}
}

// IsConnectivity reports whether err is (or wraps) ErrConnectivity.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is (or wraps) ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
