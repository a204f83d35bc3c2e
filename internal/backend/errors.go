package backend

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/duriyam/operate/internal/shared"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Is classifies the error against the shared taxonomy.
func (e *Error) Is(target error) bool {
	switch target {
	case shared.ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case shared.ErrInvalidCredentials:
		return e.Status == http.StatusBadRequest && e.Code == "invalid_grant"
	case shared.ErrForbidden:
		return e.Status == http.StatusForbidden
	case shared.ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == "23503"
	case shared.ErrUpstream:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

type errorBody struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func newError(status int, payload []byte) *Error {
	out := &Error{Status: status, Message: http.StatusText(status)}
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return out
	}
	out.Code = body.Code
	if out.Code == "" {
		out.Code = body.Error
	}
	for _, msg := range []string{body.Message, body.Msg, body.ErrorDescription} {
		if msg != "" {
			out.Message = msg
			break
		}
	}
	return out
}
