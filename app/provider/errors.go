package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that the requested account or resource does not
	// exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited reports that the upstream rejected the call due to
	// rate limiting. Detected from HTTP 429 or upstream error code 88,
	// never from message text.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthRequired reports that the login flow demanded interactive
	// input (confirmation code, challenge). Terminal for a bootstrap
	// attempt; never retried automatically.
	ErrAuthRequired = errors.New("interactive authentication required")
)

// APIError is an upstream failure that carried a structured error payload.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("upstream error %d (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Upstream error codes with well-defined meanings.
const (
	codeNoUserMatches = 17
	codeUserNotFound  = 50
	codePageNotExist  = 34
	codeRateLimit     = 88
)

// mapAPIError converts a decoded upstream error into the typed taxonomy.
func mapAPIError(statusCode, code int, message string) error {
	apiErr := &APIError{StatusCode: statusCode, Code: code, Message: message}
	switch {
	case statusCode == 429 || code == codeRateLimit:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	case code == codeUserNotFound || code == codePageNotExist || code == codeNoUserMatches:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	case statusCode == 404:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	}
	return apiErr
}
