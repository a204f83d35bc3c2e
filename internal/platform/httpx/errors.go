// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/duriyam/operate/internal/shared"
)

// Sentinel errors for request handling.
var (
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := Classify(err)
	detail := shared.UserSafeMessage(err)
	if errors.Is(err, ErrValidation) {
		detail = err.Error()
	}
	Problem(w, status, title, detail)
}

// Classify returns the HTTP status and title for an error.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "Duplicate"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway, "Backend Unavailable"
	case errors.Is(err, shared.ErrConfiguration):
		return http.StatusServiceUnavailable, "Configuration Error"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
