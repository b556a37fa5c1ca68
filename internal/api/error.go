// internal/api/error.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the uniform failure shape for every backend operation. Status is
// zero for pure transport failures.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unauthorized reports whether err is a 401 backend response.
func Unauthorized(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// errorFromResponse extracts the server's human-readable message from an
// error body, falling back to a generic message. Bodies come in two shapes:
// {"error": "msg"} and {"error": {"field": "msg", ...}}.
func errorFromResponse(status int, body []byte) *Error {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var msg string
			if err := json.Unmarshal(envelope.Error, &msg); err == nil && msg != "" {
				return &Error{Status: status, Message: msg}
			}
			var fields map[string]string
			if err := json.Unmarshal(envelope.Error, &fields); err == nil && len(fields) > 0 {
				for field, msg := range fields {
					return &Error{Status: status, Message: field + ": " + msg}
				}
			}
		}
		if envelope.Message != "" {
			return &Error{Status: status, Message: envelope.Message}
		}
	}
	return &Error{Status: status, Message: fmt.Sprintf("request failed with status %d", status)}
}
