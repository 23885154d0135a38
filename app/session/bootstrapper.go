package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"birdgate/app/provider"
)

// AttemptRecorder archives bootstrap attempts for diagnostics. Recording is
// best-effort; failures are logged and never affect the bootstrap outcome.
type AttemptRecorder interface {
	RecordBootstrapAttempt(mode string, succeeded bool, cause, message string) error
}

// Bootstrapper establishes sessions using one of two mutually exclusive
// strategies selected at startup. All writes to the Store flow through it,
// serialized by mu: at most one bootstrap is in flight at a time, and the
// fail-fast re-bootstrap path refuses to wait for a running one.
type Bootstrapper struct {
	client      provider.Client
	store       *Store
	mode        Mode
	cookiesFile string
	recorder    AttemptRecorder
	mu          sync.Mutex
}

func NewBootstrapper(client provider.Client, store *Store, mode Mode, cookiesFile string, recorder AttemptRecorder) *Bootstrapper {
	return &Bootstrapper{
		client:      client,
		store:       store,
		mode:        mode,
		cookiesFile: cookiesFile,
		recorder:    recorder,
	}
}

// Run performs the startup bootstrap for the configured mode. A failure is
// recorded in the Store and returned for logging; the process keeps running
// with an empty Store either way.
func (b *Bootstrapper) Run(ctx context.Context, username, email, password, cookieBlob string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mode == ModeCookies {
		_, err := b.cookieBootstrap(ctx, cookieBlob)
		return err
	}
	_, err := b.credentialBootstrap(ctx, username, email, password)
	return err
}

// Rebootstrap is the operator-triggered credential bootstrap. It fails fast
// with ErrAlreadyActive when a valid session exists and with
// ErrBootstrapInProgress when another bootstrap holds the lock; it never
// blocks behind one.
func (b *Bootstrapper) Rebootstrap(ctx context.Context, username, email, password string) (*Session, error) {
	if _, ok := b.store.Get(); ok {
		return nil, ErrAlreadyActive
	}

	if !b.mu.TryLock() {
		return nil, ErrBootstrapInProgress
	}
	defer b.mu.Unlock()

	if _, ok := b.store.Get(); ok {
		return nil, ErrAlreadyActive
	}

	return b.credentialBootstrap(ctx, username, email, password)
}

func (b *Bootstrapper) credentialBootstrap(ctx context.Context, username, email, password string) (*Session, error) {
	if username == "" || email == "" || password == "" {
		err := &ConfigurationError{Reason: "credential mode requires username, email and password"}
		b.recordFailure(ModeCredential, CauseMissingCredentials, err.Error())
		return nil, err
	}

	slog.Info("Bootstrapping session via credential login", "username", username)

	if err := b.client.Login(ctx, username, email, password, b.cookiesFile); err != nil {
		cause := CauseLoginFailed
		if errors.Is(err, provider.ErrAuthRequired) {
			// Terminal: the flow wants interactive input we cannot supply.
			cause = CauseAuthRequired
			slog.Error("Login requires interactive input; not retrying", "error", err)
		} else {
			slog.Error("Login failed", "error", err)
		}
		b.recordFailure(ModeCredential, cause, err.Error())
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return b.probe(ctx, ModeCredential)
}

func (b *Bootstrapper) cookieBootstrap(ctx context.Context, cookieBlob string) (*Session, error) {
	cookies, err := ParseCookieBlob(cookieBlob)
	if err != nil {
		slog.Error("Session cookie blob rejected", "error", err)
		b.recordFailure(ModeCookies, CauseBadCookieBlob, err.Error())
		return nil, err
	}

	slog.Info("Bootstrapping session from provisioned cookies", "cookie_count", len(cookies))

	if err := b.client.SetCookies(cookies); err != nil {
		configErr := &ConfigurationError{Reason: err.Error()}
		slog.Error("Failed to install provisioned cookies", "error", err)
		b.recordFailure(ModeCookies, CauseBadCookieBlob, configErr.Error())
		return nil, configErr
	}

	return b.probe(ctx, ModeCookies)
}

// probe verifies a freshly built session by resolving the identity that
// owns it. Only a non-empty handle counts as success.
func (b *Bootstrapper) probe(ctx context.Context, mode Mode) (*Session, error) {
	identity, err := b.client.WhoAmI(ctx)
	if err != nil {
		if mode == ModeCookies && errors.Is(err, provider.ErrNotFound) {
			// Distinguishable in logs: either the provisioned cookies are
			// stale or the upstream API shape changed under us.
			slog.Error("Identity probe returned not-found in cookie mode: stale session data or upstream API change", "error", err)
			b.recordFailure(mode, CauseProbeNotFound, err.Error())
		} else {
			slog.Error("Identity probe failed", "mode", string(mode), "error", err)
			b.recordFailure(mode, CauseProbeFailed, err.Error())
		}
		return nil, fmt.Errorf("identity probe failed: %w", err)
	}

	if identity == nil || identity.ScreenName == "" {
		err := fmt.Errorf("identity probe returned no resolvable handle")
		slog.Error("Identity probe incomplete", "mode", string(mode))
		b.recordFailure(mode, CauseProbeFailed, err.Error())
		return nil, err
	}

	session := &Session{
		Identity:      *identity,
		EstablishedAt: time.Now().UTC(),
		Mode:          mode,
	}
	b.store.Set(session)
	b.recordSuccess(mode)

	slog.Info("Session established", "handle", identity.ScreenName, "user_id", identity.ID, "mode", string(mode))

	return session, nil
}

// ParseCookieBlob decodes the serialized session blob. The expected shape
// is strict: a one-element JSON array holding a non-empty mapping of cookie
// names to string values. Anything else is a configuration error.
func ParseCookieBlob(blob string) (map[string]string, error) {
	if blob == "" {
		return nil, &ConfigurationError{Reason: "cookie blob is empty"}
	}

	var wrapped []map[string]string
	if err := json.Unmarshal([]byte(blob), &wrapped); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("malformed cookie blob: %v", err)}
	}
	if len(wrapped) != 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cookie blob must be a one-element array, got %d elements", len(wrapped))}
	}
	if len(wrapped[0]) == 0 {
		return nil, &ConfigurationError{Reason: "cookie blob contains an empty mapping"}
	}

	return wrapped[0], nil
}

func (b *Bootstrapper) recordFailure(mode Mode, cause, message string) {
	b.store.SetFailure(&BootstrapFailure{
		Mode:      mode,
		Cause:     cause,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	b.record(mode, false, cause, message)
}

func (b *Bootstrapper) recordSuccess(mode Mode) {
	b.record(mode, true, "", "")
}

func (b *Bootstrapper) record(mode Mode, succeeded bool, cause, message string) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordBootstrapAttempt(string(mode), succeeded, cause, message); err != nil {
		slog.Warn("Failed to archive bootstrap attempt", "error", err)
	}
}
