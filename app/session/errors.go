package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive rejects a re-bootstrap while a valid session exists.
	ErrAlreadyActive = errors.New("session already active")

	// ErrBootstrapInProgress rejects a re-bootstrap racing a running one.
	ErrBootstrapInProgress = errors.New("bootstrap already in progress")
)

// UnavailableError is the Gate rejection. The hint tells the operator how
// to recover in the current deployment mode.
type UnavailableError struct {
	Hint string
}

func (e *UnavailableError) Error() string {
	return "no active session: " + e.Hint
}

// ConfigurationError marks malformed bootstrap input (bad cookie blob,
// missing credentials). Fatal to the bootstrap attempt, never to the
// process, and never surfaced to HTTP callers outside the operator path.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bootstrap configuration error: %s", e.Reason)
}
