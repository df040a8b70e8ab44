package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the remote API. Message is
// extracted from the JSON body when present, else the raw body text,
// else a generic fallback.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// NotFound reports whether the error is a 404-class response. Callers
// deleting a trip treat this as success-with-warning: the trip is
// already gone on the server.
func (e *APIError) NotFound() bool {
	return e.Status == 404 || e.Status == 410
}

// AuthError means no valid credential was available. Write operations
// fail with it before any network I/O.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "unauthenticated: " + e.Reason
}

// IsNotFound reports whether err is a 404-class APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// newAPIError builds an APIError from a response body, pulling a
// message out of {"message": ...} or {"error": ...} when the body is
// JSON.
func newAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if msg != "" {
		var parsed struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil {
			if parsed.Message != "" {
				msg = parsed.Message
			} else if parsed.Error != "" {
				msg = parsed.Error
			}
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed (%d)", status)
	}
	return &APIError{Status: status, Message: msg}
}
