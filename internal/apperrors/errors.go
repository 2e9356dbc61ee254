// Package apperrors defines the application error taxonomy shared by the
// domain, the summary pipeline and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is checks.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation error")
	ErrUpstream          = errors.New("upstream unavailable")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrIngestion         = errors.New("ingestion error")
	ErrInternal          = errors.New("internal error")
)

// Error carries a typed application error with HTTP mapping and optional
// structured details (e.g. the raw model output on a parse failure).
type Error struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a not-found error for the named resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Validation builds a request validation error with per-field details.
func Validation(message string, details map[string]string) *Error {
	return &Error{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Upstream wraps a failed model call. The cause is kept for logs and the
// description surfaces to the caller.
func Upstream(err error) *Error {
	return &Error{
		Err:        ErrUpstream,
		Message:    fmt.Sprintf("language model unavailable: %v", err),
		Code:       "UPSTREAM_UNAVAILABLE",
		HTTPStatus: http.StatusBadGateway,
	}
}

// MalformedResponse reports a model reply that could not be parsed even after
// repair. The raw text is attached so it is never silently dropped.
func MalformedResponse(raw string) *Error {
	return &Error{
		Err:        ErrMalformedResponse,
		Message:    "could not extract structured data from model response",
		Code:       "MALFORMED_UPSTREAM_RESPONSE",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]string{"raw_response": raw},
	}
}

// Ingestion wraps a roster load failure. Fatal at startup.
func Ingestion(err error) *Error {
	return &Error{
		Err:        ErrIngestion,
		Message:    fmt.Sprintf("roster ingestion failed: %v", err),
		Code:       "INGESTION_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// From coerces any error into an *Error, defaulting to Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
