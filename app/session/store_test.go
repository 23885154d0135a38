package session

import (
	"sync"
	"testing"
	"time"

	"birdgate/app/provider"
)

func testSession() *Session {
	return &Session{
		Identity: provider.Identity{
			ID:         "12345",
			Name:       "Example User",
			ScreenName: "example",
		},
		EstablishedAt: time.Now().UTC(),
		Mode:          ModeCredential,
	}
}

func TestStoreSetAndGet(t *testing.T) {
	store := NewStore()

	if _, ok := store.Get(); ok {
		t.Error("Expected empty store initially")
	}

	session := testSession()
	store.Set(session)

	current, ok := store.Get()
	if !ok {
		t.Fatal("Expected session after Set")
	}
	if current.Identity.ScreenName != "example" {
		t.Errorf("Unexpected handle: %s", current.Identity.ScreenName)
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	store.Set(testSession())
	store.Clear()

	if _, ok := store.Get(); ok {
		t.Error("Expected empty store after Clear")
	}
}

func TestStoreSetClearsFailure(t *testing.T) {
	store := NewStore()
	store.SetFailure(&BootstrapFailure{
		Mode:      ModeCredential,
		Cause:     CauseLoginFailed,
		Message:   "bad password",
		Timestamp: time.Now().UTC(),
	})

	if _, ok := store.Get(); ok {
		t.Error("Expected no session after a recorded failure")
	}
	failure, ok := store.LastFailure()
	if !ok {
		t.Fatal("Expected failure to be retained")
	}
	if failure.Cause != CauseLoginFailed {
		t.Errorf("Unexpected cause: %s", failure.Cause)
	}

	store.Set(testSession())
	if _, ok := store.LastFailure(); ok {
		t.Error("Expected failure to be discarded after a successful Set")
	}
}

func TestStoreFailureClearsSession(t *testing.T) {
	store := NewStore()
	store.Set(testSession())

	store.SetFailure(&BootstrapFailure{Mode: ModeCookies, Cause: CauseProbeFailed})
	if _, ok := store.Get(); ok {
		t.Error("Expected session to be cleared by a recorded failure")
	}
}

func TestStoreConcurrentReaders(t *testing.T) {
	store := NewStore()
	store.Set(testSession())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if current, ok := store.Get(); ok && current.Identity.ID == "" {
					t.Error("Read a partially written session")
					return
				}
			}
		}()
	}
	store.Set(testSession())
	wg.Wait()
}
