package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoToken indicates no bearer credential was available. Operations
	// fail pre-flight with this error before any network call is made.
	ErrNoToken = errors.New("no token found")

	// ErrConflict indicates the server rejected a write because the
	// presented version token was stale (HTTP 409). Callers surface this
	// as a distinct, user-facing conflict directing a manual refresh; it
	// is never auto-retried.
	ErrConflict = errors.New("modified by another session, refresh and try again")

	// ErrUnauthorized indicates the bearer token was rejected (HTTP 401).
	ErrUnauthorized = errors.New("authentication required")
)

// APIError is the uniform error for any non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Is maps well-known status codes onto their sentinel errors so callers can
// use errors.Is(err, ErrConflict) without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}
