package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRoleRequired is returned by OAuthLogin when no application role
// has been selected for the exchange.
var ErrRoleRequired = errors.New("a role must be selected before OAuth login")

// APIError is a non-2xx response from the backend. Message carries the
// server-provided text; Fields carries field-level validation detail
// when the server returns any.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Message returns the server-provided text from err when present,
// falling back to a generic message suitable for display.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "something went wrong, please try again"
}
