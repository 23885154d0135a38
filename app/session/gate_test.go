package session

import (
	"errors"
	"strings"
	"testing"
)

func TestGateRequireWithSession(t *testing.T) {
	store := NewStore()
	store.Set(testSession())
	gate := NewGate(store, ModeCredential)

	session, err := gate.Require()
	if err != nil {
		t.Fatalf("Expected session, got error: %v", err)
	}
	if session.Identity.ScreenName != "example" {
		t.Errorf("Unexpected handle: %s", session.Identity.ScreenName)
	}
}

func TestGateRequireWithoutSession(t *testing.T) {
	gate := NewGate(NewStore(), ModeCredential)

	_, err := gate.Require()
	if err == nil {
		t.Fatal("Expected error without a session")
	}

	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError, got %T", err)
	}
	if !strings.Contains(unavailable.Hint, "re-login") {
		t.Errorf("Expected credential-mode hint to mention re-login, got %q", unavailable.Hint)
	}
}

func TestGateHintDependsOnMode(t *testing.T) {
	gate := NewGate(NewStore(), ModeCookies)

	_, err := gate.Require()
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError, got %T", err)
	}
	if !strings.Contains(unavailable.Hint, "cookie blob") {
		t.Errorf("Expected cookie-mode hint to mention the cookie blob, got %q", unavailable.Hint)
	}
}
