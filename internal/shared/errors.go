package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the actor lacks the required role or permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConfiguration indicates the backend endpoint or key is missing.
	ErrConfiguration = errors.New("backend not configured")
	// ErrUpstream indicates the hosted backend failed to answer.
	ErrUpstream = errors.New("backend request failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into text that can be shown to an operator.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has expired, sign in again"
	case errors.Is(err, ErrForbidden):
		return "You do not have access to this action"
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, ErrUpstream):
		return "The backend could not complete the request, try again shortly"
	case errors.Is(err, ErrConfiguration):
		return "The application is not configured: backend endpoint or API key missing"
	default:
		return "Something went wrong, please try again"
	}
}
