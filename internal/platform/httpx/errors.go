// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors understood by RespondError.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

// FieldErrorer is implemented by errors carrying per-field messages.
type FieldErrorer interface {
	FieldErrors() map[string]string
}

// RespondError maps errors to HTTP responses using RFC7807. Errors that carry
// field messages are answered as validation problems.
func RespondError(w http.ResponseWriter, err error) {
	var fe FieldErrorer
	switch {
	case errors.As(err, &fe):
		ValidationProblem(w, err.Error(), fe.FieldErrors())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
