package session

// Gate is the single authorization checkpoint for protected operations.
// No operation may call the upstream provider without passing it.
type Gate struct {
	store *Store
	mode  Mode
}

func NewGate(store *Store, mode Mode) *Gate {
	return &Gate{store: store, mode: mode}
}

// Require returns the current session or an UnavailableError carrying a
// mode-specific recovery hint for the operator.
func (g *Gate) Require() (*Session, error) {
	if session, ok := g.store.Get(); ok {
		return session, nil
	}
	return nil, &UnavailableError{Hint: recoveryHint(g.mode)}
}

func recoveryHint(mode Mode) string {
	if mode == ModeCookies {
		return "re-provision the session cookie blob and restart the service"
	}
	return "trigger a manual re-login via POST /api/session/relogin"
}
