// Package client is the brokerage client proper: the login state machine,
// catalog and portfolio readers, disposition history and the purchase
// workflow, all built on the protocol package's two navigation
// primitives. One Client is one exclusive conversation with the server;
// nothing here is safe for concurrent use.
package client

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/internal/twofactor"
	"github.com/mpapierski/obligacjeskarbowe/pkg/models"
)

// DefaultBaseURL is the brokerage's transaction service.
const DefaultBaseURL = "https://www.zakup.obligacjeskarbowe.pl"

// Site paths and form ids.
const (
	accountPath       = "/stanRachunku.html"
	generalSalePath   = "/zakupObligacji.html"
	familySalePath    = "/zakupObligacji500Plus.html"
	historyPath       = "/historiaDyspozycji.html"
	loginPagePath     = "/login.html"
	loginSubmitPath   = "/login"
	logoutPath        = "/logout"
	accountFormID     = "stanRachunku"
	catalogFormID     = "dostepneEmisje"
	dispositionFormID = "daneDyspozycji"
	confirmFormID     = "zatwierdzenie1"
	historyFormID     = "historia"
)

// loginButton is the submit button value the login form posts.
const loginButton = "Zaloguj"

// deviceCookie marks the device as already verified within a session, so
// the server does not repeat the device challenge.
const (
	deviceCookieName  = "obligacje_set"
	deviceCookieValue = "none"
)

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	// NtfyTopic is the push-notification topic the one-time codes arrive
	// on.
	NtfyTopic string
	// SessionPath overrides the persisted session location.
	SessionPath string
	Logger      *slog.Logger
	// SettleDelay overrides the wait between receiving a one-time code
	// and submitting it. Zero means twofactor.SettleDelay.
	SettleDelay time.Duration
}

// Client drives one authenticated brokerage session.
type Client struct {
	proto    *protocol.Client
	store    *protocol.Store
	tokens   *twofactor.Source
	logger   *slog.Logger
	username string
	password string
	settle   time.Duration

	sess protocol.Session
	// catalog caches the last ListBonds result; the purchase workflow
	// needs the select-action descriptors it carries.
	catalog *models.BondCatalog
}

// New creates a Client. It performs no network traffic; call Login first.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SessionPath == "" {
		opts.SessionPath = protocol.DefaultStorePath()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = twofactor.SettleDelay
	}
	proto, err := protocol.New(opts.BaseURL, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		proto:    proto,
		store:    &protocol.Store{Path: opts.SessionPath},
		tokens:   twofactor.NewSource(opts.NtfyTopic, opts.Logger),
		logger:   opts.Logger.With("component", "client"),
		username: opts.Username,
		password: opts.Password,
		settle:   opts.SettleDelay,
	}, nil
}

// TokenSource exposes the two-factor source, so the CLI can point it at a
// different ntfy instance.
func (c *Client) TokenSource() *twofactor.Source { return c.tokens }

// fail clears session state when an error means the conversation is dead,
// and passes the error through otherwise.
func (c *Client) fail(err error) error {
	if err == protocol.ErrSessionExpired {
		c.sess = protocol.Session{}
		if clearErr := c.store.Clear(); clearErr != nil {
			c.logger.Warn("failed to clear session file", "error", clearErr)
		}
	}
	return err
}

// navigate wraps protocol navigation, keeping the client's session
// current and persisting it for the next invocation.
func (c *Client) navigate(ctx context.Context, path, formID string) (*goquery.Document, error) {
	sess, doc, err := c.proto.Navigate(ctx, path, formID)
	if err != nil {
		return nil, c.fail(err)
	}
	c.sess = sess
	c.persist()
	return doc, nil
}

// step wraps a protocol step the same way.
func (c *Client) step(ctx context.Context, req protocol.StepRequest) (*protocol.StepResult, error) {
	result, err := c.proto.Step(ctx, c.sess, req)
	if err != nil {
		return nil, c.fail(err)
	}
	c.sess = result.Session
	c.persist()
	return result, nil
}

func (c *Client) persist() {
	if err := c.store.Save(c.sess, c.proto.Cookies()); err != nil {
		c.logger.Warn("failed to persist session", "error", err)
	}
}

// Logout terminates the server session and discards the persisted state.
func (c *Client) Logout(ctx context.Context) error {
	_, _, err := c.proto.Get(ctx, logoutPath)
	if clearErr := c.store.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	c.sess = protocol.Session{}
	return err
}

// loginForm builds the credential submission body.
func (c *Client) loginForm() url.Values {
	return url.Values{
		"username": {c.username},
		"password": {c.password},
		"baton":    {loginButton},
	}
}
