package session

import (
	"sync"
)

// Store owns the current session handle and the last bootstrap failure.
// It is safe for concurrent use: readers take a shared lock around a
// pointer read of an immutable Session; writes happen only from the
// serialized bootstrap path.
type Store struct {
	mu      sync.RWMutex
	current *Session
	failure *BootstrapFailure
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Set publishes a new session and discards any recorded failure.
func (s *Store) Set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = session
	s.failure = nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// SetFailure records a failed bootstrap attempt and resets the session to
// absent. The failure is retained until the next successful bootstrap.
func (s *Store) SetFailure(failure *BootstrapFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.failure = failure
}

func (s *Store) LastFailure() (*BootstrapFailure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure, s.failure != nil
}
