package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches any APIError carrying a 429
	ErrRateLimited = errors.New("rate limited")
	// ErrNotAuthenticated is returned by calls that need a session when none is held
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx reply from the backend
type APIError struct {
	Status  int
	Message string
	// RetryAfter is the cooldown in seconds announced by a 429
	RetryAfter int64
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrRateLimited) match a 429
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// messageOf picks the text shown to the user for a failed call
func messageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
