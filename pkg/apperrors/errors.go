// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return *Error values for conditions the API maps to a
// specific status; anything else surfaces as 503 so callers can distinguish
// a policy decision from an outage.
package apperrors

import (
	"errors"
	"net/http"
)

// Error is an API-visible error. Code mirrors the HTTP status that the
// handler layer writes for it.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// BadRequest returns a 400 error.
func BadRequest(message string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message}
}

// Unauthorized returns a 401 error. All authorization denials use this
// status regardless of whether the resource exists.
func Unauthorized(message string) *Error {
	return &Error{Code: http.StatusUnauthorized, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return &Error{Code: http.StatusNotFound, Message: message}
}

// Conflict returns a 409 error.
func Conflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Message: message}
}

// ServerError returns a 503 error.
func ServerError(message string) *Error {
	return &Error{Code: http.StatusServiceUnavailable, Message: message}
}

// FromError maps any error to an *Error. Errors outside the taxonomy become
// 503 with the original message preserved.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ServerError(err.Error())
}

// IsNotFound reports whether err maps to a 404.
func IsNotFound(err error) bool {
	return FromError(err).Code == http.StatusNotFound
}

// IsConflict reports whether err maps to a 409.
func IsConflict(err error) bool {
	return FromError(err).Code == http.StatusConflict
}

// IsUnauthorized reports whether err maps to a 401.
func IsUnauthorized(err error) bool {
	return FromError(err).Code == http.StatusUnauthorized
}
