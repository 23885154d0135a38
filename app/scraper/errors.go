package scraper

import (
	"errors"
)

// ErrIdentifierUnresolved reports that a user identifier could not be
// resolved to an account. Per-request; distinct from the provider being
// unavailable.
var ErrIdentifierUnresolved = errors.New("user identifier could not be resolved")

// ValidationError rejects malformed request parameters before any provider
// call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(message string) error {
	return &ValidationError{Message: message}
}
