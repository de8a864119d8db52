// Package apierr defines the error taxonomy surfaced to API clients. Every
// engine layer returns these typed errors; handlers translate them into the
// response envelope and HTTP status, so raw driver errors never reach the
// wire.
package apierr

import (
	"errors"
	"net/http"
)

// Error is one client-visible failure. ID and Message are stable per kind;
// Info carries kind-specific diagnostics (per-field validation errors,
// duplicate field lists, minimum required permissions).
type Error struct {
	ID      string `json:"error_id"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Info    any    `json:"info,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.ID + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.ID + ": " + e.Message
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As and logs.
func (e *Error) Unwrap() error { return e.cause }

// From extracts an *Error from an error chain. The second result is false
// when err carries no API error.
func From(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Validation reports per-field constraint failures. Info is a map of field
// name to failed-constraint descriptions.
func Validation(info any) *Error {
	return &Error{ID: "ValidationError", Message: "Invalid parameters", Status: http.StatusBadRequest, Info: info}
}

// Duplicate reports a unique-constraint pre-check hit. Info maps each
// duplicated field name to a message.
func Duplicate(info any) *Error {
	return &Error{ID: "DuplicateValueError", Message: "Duplicate value", Status: http.StatusBadRequest, Info: info}
}

// JSONParse reports a malformed wire payload.
func JSONParse(detail string) *Error {
	return &Error{ID: "JsonParseError", Message: "Error parsing JSON", Status: http.StatusBadRequest, Info: detail}
}

// InvalidAuthToken reports a token that failed signature, claim or
// revocation checks.
func InvalidAuthToken(detail string) *Error {
	e := &Error{ID: "InvalidAuthTokenError", Message: "Invalid authentication token", Status: http.StatusBadRequest}
	if detail != "" {
		e.Info = detail
	}
	return e
}

// InvalidRefreshToken reports a refresh token that failed verification.
func InvalidRefreshToken(detail string) *Error {
	e := &Error{ID: "InvalidRefreshTokenError", Message: "Invalid refresh token", Status: http.StatusBadRequest}
	if detail != "" {
		e.Info = detail
	}
	return e
}

// Unauthorized reports an instance- or field-tier permission denial. The
// minimum permission needed for the operation is attached as diagnostic
// info ("C---", "R---", ...).
func Unauthorized(requiredPermissions string) *Error {
	return &Error{
		ID:      "UnauthorizedError",
		Message: "Invalid permissions",
		Status:  http.StatusForbidden,
		Info:    map[string]string{"required_permissions": requiredPermissions},
	}
}

// InvalidParams reports a structurally valid request that cannot be acted
// on, e.g. an update with no settable fields left after filtering.
func InvalidParams(detail string) *Error {
	e := &Error{ID: "InvalidParamsError", Message: "Invalid parameters", Status: http.StatusBadRequest}
	if detail != "" {
		e.Info = detail
	}
	return e
}

// NotFound reports a missing resource.
func NotFound(detail string) *Error {
	e := &Error{ID: "NotFoundError", Message: "Resource not found", Status: http.StatusNotFound}
	if detail != "" {
		e.Info = detail
	}
	return e
}

// Store wraps a relational-layer failure. The driver error is kept in the
// chain for logs but its text is not exposed to clients.
func Store(err error) *Error {
	return &Error{ID: "StoreError", Message: "Database error", Status: http.StatusInternalServerError, cause: err}
}
