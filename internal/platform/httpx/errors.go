// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		ProblemFor(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		ProblemFor(w, r, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		ProblemFor(w, r, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Forbidden(w, r)
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(w, r)
	default:
		ProblemFor(w, r, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Forbidden answers 403 with a localized detail.
func Forbidden(w http.ResponseWriter, r *http.Request) {
	Problem(w, http.StatusForbidden, "Forbidden", Localize(r, MsgForbidden))
}

// Unauthorized answers 401 with a localized detail.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Problem(w, http.StatusUnauthorized, "Unauthorized", Localize(r, MsgUnauthorized))
}
