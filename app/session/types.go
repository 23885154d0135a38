package session

import (
	"time"

	"birdgate/app/provider"
)

type Mode string

const (
	ModeCredential Mode = "credential"
	ModeCookies    Mode = "cookies"
)

// Session is an authenticated handle. Immutable once published to the
// Store; re-bootstrap replaces the whole value, never mutates it.
type Session struct {
	Identity      provider.Identity
	EstablishedAt time.Time
	Mode          Mode
}

// Failure causes recorded on bootstrap attempts.
const (
	CauseMissingCredentials = "missing_credentials"
	CauseBadCookieBlob      = "bad_cookie_blob"
	CauseLoginFailed        = "login_failed"
	CauseAuthRequired       = "auth_required"
	CauseProbeFailed        = "probe_failed"
	CauseProbeNotFound      = "probe_not_found"
)

// BootstrapFailure is retained until the next bootstrap attempt succeeds
// and surfaced in dev-mode diagnostics.
type BootstrapFailure struct {
	Mode      Mode
	Cause     string
	Message   string
	Timestamp time.Time
}
