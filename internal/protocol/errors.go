package protocol

import (
	"errors"
	"fmt"
)

// ErrSessionExpired reports that a navigation resolved to the login page:
// the server no longer recognizes the session. Callers must clear the
// persisted session and re-authenticate; retrying with the stale
// ViewState is never correct.
var ErrSessionExpired = errors.New("session expired: redirected to login page")

// ErrNotLoggedIn reports that no persisted session exists. This is the
// recoverable "please log in" condition.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrCorruptSession reports a session file that exists but cannot be
// decoded. Distinct from ErrNotLoggedIn so operators can tell a stale
// state file from a fresh machine.
var ErrCorruptSession = errors.New("corrupt session file")

// HTTPError reports a non-2xx response. Transport failures are fatal and
// never retried; the remote conversation is exactly-once per step.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.URL)
}

// MalformedResponseError reports a partial-AJAX response that is not the
// expected XML dialect (no redirect and no changes, or unparseable XML).
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed partial response: %s", e.Reason)
}

// UnexpectedFieldError reports a partial-update key the caller did not
// declare. The strict allow-list turns an unknown server-side change into
// a hard stop instead of a silently dropped state update.
type UnexpectedFieldError struct {
	Field string
}

func (e *UnexpectedFieldError) Error() string {
	return fmt.Sprintf("unexpected update field %q in partial response", e.Field)
}
