package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Session is the minimal conversation state the server expects the client
// to carry between steps: the action URL of the last navigated form and
// the last ViewState token. It is a value, threaded through each protocol
// call and returned updated, never mutated in place.
type Session struct {
	FormAction string `json:"form_action"`
	ViewState  string `json:"view_state"`
}

// Ready reports whether the session can drive a partial-AJAX step.
func (s Session) Ready() bool {
	return s.FormAction != "" && s.ViewState != ""
}

// persistedState is the on-disk session blob: conversation state plus the
// cookie jar contents for the brokerage host.
type persistedState struct {
	Session Session        `json:"session"`
	Cookies []*http.Cookie `json:"cookies"`
}

// Store persists the session between independent command invocations.
type Store struct {
	Path string
}

// DefaultStorePath returns the well-known temp-directory session path.
func DefaultStorePath() string {
	return filepath.Join(os.TempDir(), "obligacjeskarbowe", "session.json")
}

// Save writes the session and cookies to the store path, creating parent
// directories as needed. The file is owner-only: it holds auth state.
func (st *Store) Save(sess Session, cookies []*http.Cookie) error {
	blob, err := json.MarshalIndent(persistedState{Session: sess, Cookies: cookies}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(st.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(st.Path, blob, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load restores a previously saved session. A missing or empty file is
// ErrNotLoggedIn; a file that exists but cannot be decoded is
// ErrCorruptSession.
func (st *Store) Load() (Session, []*http.Cookie, error) {
	blob, err := os.ReadFile(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil, ErrNotLoggedIn
	}
	if err != nil {
		return Session{}, nil, fmt.Errorf("read session file: %w", err)
	}
	if len(blob) == 0 {
		return Session{}, nil, ErrNotLoggedIn
	}
	var state persistedState
	if err := json.Unmarshal(blob, &state); err != nil {
		return Session{}, nil, fmt.Errorf("%w: %s", ErrCorruptSession, st.Path)
	}
	return state.Session, state.Cookies, nil
}

// Clear removes the persisted session. Missing file is not an error.
func (st *Store) Clear() error {
	if err := os.Remove(st.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
