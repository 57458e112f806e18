package jikan

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Configuration errors.
var (
	ErrInvalidBaseURL       = errors.New("jikan: base URL must be an absolute http(s) URL")
	ErrInvalidTimeout       = errors.New("jikan: timeout must not be negative")
	ErrInvalidCacheCapacity = errors.New("jikan: cache capacity must be positive")
)

// Request errors.
var (
	// ErrInvalidID is returned for non-positive MyAnimeList ids.
	ErrInvalidID = errors.New("jikan: id must be positive")

	// ErrEmptyQuery is returned when a search has no query text.
	ErrEmptyQuery = errors.New("jikan: search query is required")

	// ErrNotFound matches an APIError with status 404.
	ErrNotFound = errors.New("jikan: resource not found")

	// ErrRateLimited matches an APIError with status 429.
	ErrRateLimited = errors.New("jikan: rate limited by upstream")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int    `json:"status"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Detail     string `json:"error"`
	Endpoint   string `json:"-"`
	RequestID  string `json:"-"`
}

// Error implements error.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("jikan: GET %s: %d %s", e.Endpoint, e.StatusCode, msg)
}

// Is reports whether the status maps to target.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// newAPIError builds an APIError from a response body. Bodies that are not
// Jikan error documents leave the descriptive fields empty.
func newAPIError(status int, endpoint, requestID string, body []byte) *APIError {
	apiErr := &APIError{}
	_ = json.Unmarshal(body, apiErr)

	apiErr.StatusCode = status
	apiErr.Endpoint = endpoint
	apiErr.RequestID = requestID
	return apiErr
}
