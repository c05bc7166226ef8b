// Package apperr holds the error kinds surfaced by the scoring engine and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError indicates a malformed or non-numeric request payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// IntegrityError indicates persisted artifacts whose shape does not agree
// with itself (feature list vs pipeline widths, unknown pipeline kinds, ...).
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "artifact integrity violation: " + e.Reason
}

// UnavailableError indicates artifacts are missing and no training run has
// completed yet.
type UnavailableError struct {
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model artifacts unavailable: %s: %v", e.Reason, e.Err)
	}
	return "model artifacts unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func Integrity(format string, args ...any) error {
	return &IntegrityError{Reason: fmt.Sprintf(format, args...)}
}

// Kind returns a short label for err, used for metrics and logs.
func Kind(err error) string {
	var ve *ValidationError
	var ie *IntegrityError
	var ue *UnavailableError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ie):
		return "integrity"
	case errors.As(err, &ue):
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
