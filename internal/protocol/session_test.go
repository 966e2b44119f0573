package protocol

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "session.json")}
}

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	sess := Session{FormAction: "/stanRachunku.html?execution=e1s1", ViewState: "e1s1"}
	cookies := []*http.Cookie{{Name: "JSESSIONID", Value: "abc", Path: "/"}}

	if err := store.Save(sess, cookies); err != nil {
		t.Fatal(err)
	}
	loaded, loadedCookies, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded != sess {
		t.Errorf("loaded session = %+v, want %+v", loaded, sess)
	}
	if len(loadedCookies) != 1 || loadedCookies[0].Name != "JSESSIONID" || loadedCookies[0].Value != "abc" {
		t.Errorf("loaded cookies = %+v", loadedCookies)
	}
}

func TestStoreSavePermissions(t *testing.T) {
	store := testStore(t)
	if err := store.Save(Session{FormAction: "/a", ViewState: "v"}, nil); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := testStore(t)
	if _, _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Load(); !errors.Is(err, ErrCorruptSession) {
		t.Errorf("expected ErrCorruptSession, got %v", err)
	}
}

func TestStoreClear(t *testing.T) {
	store := testStore(t)
	if err := store.Save(Session{FormAction: "/a", ViewState: "v"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("session file still present: %v", err)
	}
	// Clearing an already-clean store is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestSessionReady(t *testing.T) {
	if (Session{}).Ready() {
		t.Error("zero session reported ready")
	}
	if (Session{FormAction: "/a"}).Ready() {
		t.Error("session without ViewState reported ready")
	}
	if !(Session{FormAction: "/a", ViewState: "v"}).Ready() {
		t.Error("complete session reported not ready")
	}
}
