package credstore_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/roostapp/roost-go/credstore"
	bboltstore "github.com/roostapp/roost-go/credstore/bbolt"
	"github.com/roostapp/roost-go/credstore/memory"
)

// storeTests runs the common suite against any Store implementation.
func storeTests(t *testing.T, store credstore.Store) {
	t.Helper()

	t.Run("EmptyReads", func(t *testing.T) {
		if _, err := store.Token(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("Token() on empty store: got %v, want ErrNotFound", err)
		}
		if _, err := store.RefreshToken(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("RefreshToken() on empty store: got %v, want ErrNotFound", err)
		}
		if _, err := store.User(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("User() on empty store: got %v, want ErrNotFound", err)
		}
	})

	t.Run("SetAndGetToken", func(t *testing.T) {
		if err := store.SetToken("A1"); err != nil {
			t.Fatal(err)
		}
		got, err := store.Token()
		if err != nil {
			t.Fatal(err)
		}
		if got != "A1" {
			t.Fatalf("got token %q, want %q", got, "A1")
		}
	})

	t.Run("OverwriteToken", func(t *testing.T) {
		if err := store.SetToken("A2"); err != nil {
			t.Fatal(err)
		}
		got, err := store.Token()
		if err != nil {
			t.Fatal(err)
		}
		if got != "A2" {
			t.Fatalf("got token %q, want %q", got, "A2")
		}
	})

	t.Run("SetAndGetRefreshToken", func(t *testing.T) {
		if err := store.SetRefreshToken("R1"); err != nil {
			t.Fatal(err)
		}
		got, err := store.RefreshToken()
		if err != nil {
			t.Fatal(err)
		}
		if got != "R1" {
			t.Fatalf("got refresh token %q, want %q", got, "R1")
		}
	})

	t.Run("SetAndGetUser", func(t *testing.T) {
		if err := store.SetUser([]byte(`{"id":"u1"}`)); err != nil {
			t.Fatal(err)
		}
		got, err := store.User()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != `{"id":"u1"}` {
			t.Fatalf("got user %q", got)
		}
	})

	t.Run("RemoveToken", func(t *testing.T) {
		if err := store.RemoveToken(); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Token(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("Token() after remove: got %v, want ErrNotFound", err)
		}
		// Other keys are untouched.
		if _, err := store.RefreshToken(); err != nil {
			t.Fatalf("RefreshToken() after RemoveToken: %v", err)
		}
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		// Removing an absent key is not an error.
		if err := store.RemoveToken(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := store.SetToken("A3"); err != nil {
			t.Fatal(err)
		}
		if err := store.SetRefreshToken("R3"); err != nil {
			t.Fatal(err)
		}
		if err := store.SetUser([]byte(`{"id":"u3"}`)); err != nil {
			t.Fatal(err)
		}
		if err := store.Clear(); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Token(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("Token() after clear: got %v, want ErrNotFound", err)
		}
		if _, err := store.RefreshToken(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("RefreshToken() after clear: got %v, want ErrNotFound", err)
		}
		if _, err := store.User(); !errors.Is(err, credstore.ErrNotFound) {
			t.Fatalf("User() after clear: got %v, want ErrNotFound", err)
		}
	})

	t.Run("ClearEmpty", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeTests(t, memory.NewStore())
}

func TestBBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := bboltstore.NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	storeTests(t, store)
}

func TestBBoltStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := bboltstore.NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetToken("A1"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRefreshToken("R1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// The session survives a reopen.
	store, err = bboltstore.NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	token, err := store.Token()
	if err != nil {
		t.Fatal(err)
	}
	if token != "A1" {
		t.Fatalf("got token %q after reopen, want %q", token, "A1")
	}
	refresh, err := store.RefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	if refresh != "R1" {
		t.Fatalf("got refresh token %q after reopen, want %q", refresh, "R1")
	}
}
