// Package tkapi is an HTTP client for the Tweede Kamer open data OData API.
package tkapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBudgetExhausted is returned when the per-run API call budget has been
// spent. Callers degrade gracefully instead of aborting the run.
var ErrBudgetExhausted = errors.New("tkapi: api call budget exhausted")

// Error is an API-level failure with the HTTP status and request context.
type Error struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("tkapi: %s (%d): %s", e.URL, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error is a 429 (Too Many Requests).
func IsRateLimited(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// retryable reports whether a status code is worth retrying.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
