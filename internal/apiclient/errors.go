package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is returned for every non-2xx response.
type Error struct {
	Status  int
	Message string
	Body    []byte

	generic bool
}

func (e *Error) Error() string { return e.Message }

// ServerMessage is the message the server sent, or "" when only the status is known.
func (e *Error) ServerMessage() string {
	if e.generic {
		return ""
	}
	return e.Message
}

// newError picks the best message available: the JSON "message" field, then
// the JSON "error" field, then the raw body text, then "API error: <status>".
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}
	var payload struct {
		Message interface{} `json:"message"`
		Error   interface{} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if m, ok := payload.Message.(string); ok && strings.TrimSpace(m) != "" {
			e.Message = m
			return e
		}
		if m, ok := payload.Error.(string); ok && strings.TrimSpace(m) != "" {
			e.Message = m
			return e
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		e.Message = text
		return e
	}
	e.Message = fmt.Sprintf("API error: %d", status)
	e.generic = true
	return e
}
