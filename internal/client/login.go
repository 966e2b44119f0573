package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
	"github.com/mpapierski/obligacjeskarbowe/internal/protocol"
	"github.com/mpapierski/obligacjeskarbowe/internal/twofactor"
)

// Two-factor challenge form ids and fields. The SMS-code page is a plain
// JSF form, the device-trust page drives partial-AJAX steps.
const (
	smsFormID      = "autoryzacja"
	smsCodeField   = "autoryzacja:kodSms"
	smsSubmit      = "autoryzacja:zatwierdz"
	deviceFormID   = "urzadzenie"
	deviceSendCode = "urzadzenie:wyslijKod"
	deviceSubmit   = "urzadzenie:zatwierdz"
	deviceCode     = "urzadzenie:kodDostepu"
)

var (
	// The SMS challenge prompt names the operation the code authorizes.
	smsPromptRe = regexp.MustCompile(`kod jednorazowy dla operacji nr (\d+) z dnia (\d{2}-\d{2}-\d{4})`)
	// The device challenge page asks to verify an unrecognized device.
	devicePromptFragment = "nie zostało rozpoznane"
)

// Login authenticates the client. The flow is a small state machine:
//
//	AnonymousOrStale -> (maybe) TwoFactorChallenge -> Authenticated
//
// A persisted session that still resolves the account page short-circuits
// the whole flow, so repeated commands reuse one server conversation.
func (c *Client) Login(ctx context.Context) error {
	if c.resume(ctx) {
		return nil
	}

	if _, _, err := c.proto.Get(ctx, loginPagePath); err != nil {
		return err
	}
	doc, finalURL, err := c.proto.PostForm(ctx, loginSubmitPath, c.loginForm())
	if err != nil {
		return err
	}

	prompt := collapseWhitespace(doc.Find("div#content").Text())
	switch {
	case smsPromptRe.MatchString(prompt):
		c.logger.Info("two-factor challenge: one-time code")
		if err := c.smsChallenge(ctx, doc); err != nil {
			return err
		}
	case strings.Contains(prompt, devicePromptFragment):
		c.logger.Info("two-factor challenge: device not recognized")
		if err := c.deviceChallenge(ctx, doc); err != nil {
			return err
		}
	case finalURL.Path != loginPagePath:
		// No challenge and no bounce back to the login page: the session
		// was authenticated directly.
	default:
		return &UnexpectedPromptError{Prompt: truncate(prompt, 200)}
	}

	return c.finishLogin(ctx)
}

// resume reports whether a persisted session is still alive. Any problem
// with the stored state falls back to a fresh login; only a corrupt file
// is worth a warning.
func (c *Client) resume(ctx context.Context) bool {
	sess, cookies, err := c.store.Load()
	if err != nil {
		if errors.Is(err, protocol.ErrCorruptSession) {
			c.logger.Warn("discarding unreadable session file", "error", err)
			if clearErr := c.store.Clear(); clearErr != nil {
				c.logger.Warn("failed to clear session file", "error", clearErr)
			}
		}
		return false
	}
	c.proto.SetCookies(cookies)
	c.sess = sess
	if _, err := c.navigate(ctx, accountPath, accountFormID); err != nil {
		c.logger.Debug("persisted session is stale", "error", err)
		return false
	}
	c.logger.Info("resumed persisted session")
	return true
}

// finishLogin marks the device as verified, confirms the session is alive
// and caches the account page's conversation state.
func (c *Client) finishLogin(ctx context.Context) error {
	c.proto.SetCookie(deviceCookieName, deviceCookieValue)
	if _, err := c.navigate(ctx, accountPath, accountFormID); err != nil {
		return fmt.Errorf("login did not produce a usable session: %w", err)
	}
	c.logger.Info("authenticated", "user", c.username)
	return nil
}

// smsChallenge handles the numeric-code sub-flow: the server has already
// dispatched a code, we wait for it on the notification stream and submit
// it with a plain form POST.
func (c *Client) smsChallenge(ctx context.Context, doc *goquery.Document) error {
	action, err := markup.FormAction(doc, smsFormID)
	if err != nil {
		return err
	}
	viewState, err := markup.ViewState(doc)
	if err != nil {
		return err
	}

	token, err := c.waitForToken(ctx, nil)
	if err != nil {
		return err
	}
	c.settleBeforeSubmit()

	form := url.Values{
		smsFormID:               {smsFormID},
		smsCodeField:            {token.Code},
		smsSubmit:               {smsSubmit},
		"javax.faces.ViewState": {viewState},
	}
	result, finalURL, err := c.proto.PostForm(ctx, action, form)
	if err != nil {
		return err
	}
	if finalURL.Path == loginPagePath {
		return &UnexpectedPromptError{Prompt: truncate(collapseWhitespace(result.Find("div#content").Text()), 200)}
	}
	return nil
}

// deviceChallenge handles the device-trust sub-flow: request an access
// code over partial-AJAX, wait for its delivery, submit it over
// partial-AJAX.
func (c *Client) deviceChallenge(ctx context.Context, doc *goquery.Document) error {
	sess, err := sessionFrom(doc, deviceFormID)
	if err != nil {
		return err
	}
	c.sess = sess

	// The code must not be requested before the notification stream is
	// open, or its delivery races the subscription.
	token, err := c.waitForToken(ctx, func() error {
		result, err := c.step(ctx, protocol.StepRequest{
			Source: deviceSendCode,
			Render: deviceFormID,
		})
		if err != nil {
			return err
		}
		if result.Doc != nil {
			if c.sess, err = sessionFrom(result.Doc, deviceFormID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.settleBeforeSubmit()

	_, err = c.step(ctx, protocol.StepRequest{
		Source: deviceSubmit,
		Render: deviceFormID,
		Fields: url.Values{deviceCode: {token.Code}},
	})
	return err
}

// waitForToken subscribes to the notification topic and blocks until a
// code arrives. opened runs once the stream's Open acknowledgment is in.
func (c *Client) waitForToken(ctx context.Context, opened func() error) (twofactor.Token, error) {
	stream, err := c.tokens.Subscribe(ctx)
	if err != nil {
		return twofactor.Token{}, err
	}
	defer stream.Close()
	return stream.WaitForToken(opened)
}

// settleBeforeSubmit applies the empirical grace period between receiving
// a code and submitting it.
func (c *Client) settleBeforeSubmit() {
	c.logger.Debug("waiting before submitting the code", "delay", c.settle)
	time.Sleep(c.settle)
}

func sessionFrom(doc *goquery.Document, formID string) (protocol.Session, error) {
	action, err := markup.FormAction(doc, formID)
	if err != nil {
		return protocol.Session{}, err
	}
	viewState, err := markup.ViewState(doc)
	if err != nil {
		return protocol.Session{}, err
	}
	return protocol.Session{FormAction: action, ViewState: viewState}, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// truncate shortens a prompt to at most n runes. Prompts are Polish text,
// cutting at a byte offset could split a diacritic mid-rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
