// Package twofactor delivers the one-time login codes the brokerage sends
// out of band. The code arrives as a push notification on an ntfy.sh
// topic; subscribing yields an Open acknowledgment once the stream is
// established, then a Token carrying the code. The stream imposes no
// timeout of its own, callers bound the wait through the context.
package twofactor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// DefaultBaseURL is the public ntfy service.
const DefaultBaseURL = "https://ntfy.sh"

// SettleDelay is how long to wait after receiving a code before
// submitting it. Submitting immediately is rejected by the server; the
// code takes a few seconds to propagate on their side.
const SettleDelay = 5 * time.Second

// messageRe matches the fixed notification template the brokerage sends.
var messageRe = regexp.MustCompile(`^Operacja nr (\d+) z (\d{2}-\d{2}-\d{4}); Logowanie do Serwisu obligacyjnego - kod SMS: (\d+)$`)

// Event is either Open or Token.
type Event interface {
	isEvent()
}

// Open acknowledges that the notification stream is established. It must
// be observed before the login flow requests a code, otherwise the code
// can be delivered to nobody.
type Open struct{}

// Token is a delivered one-time code.
type Token struct {
	Operation int
	Date      time.Time
	Code      string
}

func (Open) isEvent()  {}
func (Token) isEvent() {}

// NotificationError reports an event or message that does not fit the
// expected Open-then-Token sequence.
type NotificationError struct {
	Detail string
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("unexpected notification: %s", e.Detail)
}

// Source subscribes to an ntfy topic.
type Source struct {
	BaseURL string
	Topic   string
	Client  *http.Client
	Logger  *slog.Logger
}

// NewSource creates a token source for the given topic. The HTTP client
// deliberately has no timeout: the stream stays open until a human
// approves the login.
func NewSource(topic string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		BaseURL: DefaultBaseURL,
		Topic:   topic,
		Client:  &http.Client{},
		Logger:  logger.With("component", "twofactor"),
	}
}

// Stream is a lazy pull-based sequence of at most two events per login
// attempt: Open, then Token.
type Stream struct {
	body    interface{ Close() error }
	scanner *bufio.Scanner
	logger  *slog.Logger
}

// Subscribe opens the streamed JSON-lines subscription. Cancelling the
// context aborts any blocked Next call.
func (s *Source) Subscribe(ctx context.Context) (*Stream, error) {
	url := fmt.Sprintf("%s/%s/json", s.BaseURL, s.Topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("subscribe %s: HTTP %s", url, resp.Status)
	}
	return &Stream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
		logger:  s.Logger,
	}, nil
}

// ntfyMessage is one line of the subscription stream.
type ntfyMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Next blocks until the next event arrives. The first event must be Open
// and any later one a Token matching the notification template; anything
// else is a *NotificationError.
func (st *Stream) Next() (Event, error) {
	if !st.scanner.Scan() {
		if err := st.scanner.Err(); err != nil {
			return nil, fmt.Errorf("notification stream: %w", err)
		}
		return nil, &NotificationError{Detail: "stream closed before delivering an event"}
	}
	line := st.scanner.Bytes()
	var msg ntfyMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, &NotificationError{Detail: fmt.Sprintf("unparseable stream line %q", line)}
	}

	switch msg.Event {
	case "open":
		st.logger.Info("notification stream open")
		return Open{}, nil
	case "message":
		m := messageRe.FindStringSubmatch(msg.Message)
		if m == nil {
			return nil, &NotificationError{Detail: fmt.Sprintf("message does not match code template: %q", msg.Message)}
		}
		operation, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &NotificationError{Detail: "operation number overflow"}
		}
		date, err := time.Parse("02-01-2006", m[2])
		if err != nil {
			return nil, &NotificationError{Detail: fmt.Sprintf("bad operation date %q", m[2])}
		}
		st.logger.Info("one-time code received", "operation", operation)
		return Token{Operation: operation, Date: date, Code: m[3]}, nil
	}
	return nil, &NotificationError{Detail: fmt.Sprintf("unknown event %q", msg.Event)}
}

// Close tears down the subscription.
func (st *Stream) Close() error {
	return st.body.Close()
}

// WaitForToken consumes the stream's Open acknowledgment by calling
// opened, then blocks until a Token arrives.
func (st *Stream) WaitForToken(opened func() error) (Token, error) {
	first, err := st.Next()
	if err != nil {
		return Token{}, err
	}
	if _, ok := first.(Open); !ok {
		return Token{}, &NotificationError{Detail: fmt.Sprintf("first event was %T, want Open", first)}
	}
	if opened != nil {
		if err := opened(); err != nil {
			return Token{}, err
		}
	}
	event, err := st.Next()
	if err != nil {
		return Token{}, err
	}
	token, ok := event.(Token)
	if !ok {
		return Token{}, &NotificationError{Detail: fmt.Sprintf("expected a token, got %T", event)}
	}
	return token, nil
}
