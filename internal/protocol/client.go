// Package protocol implements the site's two navigation primitives over a
// cookie-persisting HTTP session: plain page navigation and the JSF
// partial-AJAX step, including redirect-via-XML and the strict allow-list
// for partial updates. The package knows nothing about bonds; it moves a
// Session value through the server's ViewState conversation.
package protocol

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mpapierski/obligacjeskarbowe/internal/markup"
)

// loginPath is the page every dead session resolves to.
const loginPath = "/login.html"

// userAgent is sent on every request; the site serves a reduced page to
// unknown clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Client drives the brokerage's server-rendered UI. One Client holds one
// exclusive conversation; there is no concurrent use.
type Client struct {
	base   *url.URL
	httpc  *http.Client
	logger *slog.Logger
}

// New creates a protocol client for the given base URL with a fresh
// cookie jar.
func New(baseURL string, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base: base,
		httpc: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "protocol"),
	}, nil
}

// BaseURL returns the brokerage base URL.
func (c *Client) BaseURL() *url.URL { return c.base }

// Cookies returns the jar's cookies for the brokerage host, for
// persistence between invocations.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpc.Jar.Cookies(c.base)
}

// SetCookies seeds the jar with previously persisted cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.httpc.Jar.SetCookies(c.base, cookies)
}

// SetCookie attaches one cookie to the brokerage host.
func (c *Client) SetCookie(name, value string) {
	c.httpc.Jar.SetCookies(c.base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// resolve joins a site-relative path with the base URL.
func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + path
	}
	return c.base.ResolveReference(ref).String()
}

// Get fetches a page and parses it. Redirects are followed; the returned
// URL is the final resolved one. No liveness check is applied, login-flow
// callers need to reach the login page itself.
func (c *Client) Get(ctx context.Context, path string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, nil, err
	}
	return c.doDocument(req)
}

// PostForm submits an application/x-www-form-urlencoded body and parses
// the resulting page.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doDocument(req)
}

func (c *Client) doDocument(req *http.Request) (*goquery.Document, *url.URL, error) {
	body, finalURL, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse HTML from %s: %w", finalURL, err)
	}
	return doc, finalURL, nil
}

func (c *Client) do(req *http.Request) (io.ReadCloser, *url.URL, error) {
	req.Header.Set("User-Agent", userAgent)
	c.logger.Debug("request", "method", req.Method, "url", req.URL.String())
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, nil, &HTTPError{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, resp.Request.URL, nil
}

// Navigate GETs a path, verifies the session is still alive, and caches
// the page's form action and ViewState as the next session state.
func (c *Client) Navigate(ctx context.Context, path, formID string) (Session, *goquery.Document, error) {
	doc, finalURL, err := c.Get(ctx, path)
	if err != nil {
		return Session{}, nil, err
	}
	if err := c.checkAlive(finalURL); err != nil {
		return Session{}, nil, err
	}
	sess, err := sessionFromPage(doc, formID)
	if err != nil {
		return Session{}, nil, err
	}
	return sess, doc, nil
}

// checkAlive treats a resolution to the login page as a dead session.
func (c *Client) checkAlive(finalURL *url.URL) error {
	if finalURL.Path == loginPath {
		return ErrSessionExpired
	}
	return nil
}

func sessionFromPage(doc *goquery.Document, formID string) (Session, error) {
	action, err := markup.FormAction(doc, formID)
	if err != nil {
		return Session{}, err
	}
	viewState, err := markup.ViewState(doc)
	if err != nil {
		return Session{}, err
	}
	return Session{FormAction: action, ViewState: viewState}, nil
}

// StepRequest describes one partial-AJAX exchange.
type StepRequest struct {
	// Source and Render are the protocol identifiers of the action.
	Source string
	Render string
	// Fields are step-specific extra form fields.
	Fields url.Values
	// Expected lists auxiliary update ids a partial response may carry
	// without failing the allow-list. The Render id and the ViewState
	// update are always accepted.
	Expected []string
	// NextFormID, when set, names the form whose action becomes the next
	// cached form action after a redirect.
	NextFormID string
}

// StepResult is the outcome of a partial-AJAX step.
type StepResult struct {
	// Session is the updated conversation state.
	Session Session
	// Doc is the document fetched after a redirect event, nil for an
	// in-place partial update.
	Doc *goquery.Document
	// Updates holds the recognized fragment updates of a partial update.
	Updates map[string]string
}

// Step POSTs the partial-AJAX envelope to the cached form action and
// applies the response: either follows the XML redirect and re-caches the
// conversation state from the resulting page, or applies the partial
// update under the strict allow-list.
//
// The session must be Ready; calling Step without a cached form action
// and ViewState is a programming error.
func (c *Client) Step(ctx context.Context, sess Session, req StepRequest) (*StepResult, error) {
	if !sess.Ready() {
		panic("protocol: Step called before any navigation cached a form action and ViewState")
	}

	form := url.Values{}
	form.Set("javax.faces.partial.ajax", "true")
	form.Set("javax.faces.source", req.Source)
	form.Set("javax.faces.partial.execute", "@all")
	form.Set(req.Source, req.Source)
	if req.Render != "" {
		form.Set("javax.faces.partial.render", req.Render)
		form.Set(req.Render, req.Render)
	}
	for key, values := range req.Fields {
		for _, value := range values {
			form.Add(key, value)
		}
	}
	form.Set("javax.faces.ViewState", sess.ViewState)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(sess.FormAction), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Faces-Request", "partial/ajax")

	body, _, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, err
	}

	event, err := parseEvent(raw)
	if err != nil {
		return nil, err
	}
	switch ev := event.(type) {
	case Redirect:
		return c.followRedirect(ctx, sess, req, ev)
	case PartialUpdate:
		return applyUpdate(sess, req, ev)
	}
	return nil, &MalformedResponseError{Reason: "unhandled event"}
}

// followRedirect GETs the redirect target and refreshes the conversation
// state from the resulting document.
func (c *Client) followRedirect(ctx context.Context, sess Session, req StepRequest, ev Redirect) (*StepResult, error) {
	c.logger.Debug("redirect", "url", ev.URL)
	doc, finalURL, err := c.Get(ctx, ev.URL)
	if err != nil {
		return nil, err
	}
	if err := c.checkAlive(finalURL); err != nil {
		return nil, err
	}
	next := sess
	if req.NextFormID != "" {
		if next, err = sessionFromPage(doc, req.NextFormID); err != nil {
			return nil, err
		}
	} else if next.ViewState, err = markup.ViewState(doc); err != nil {
		return nil, err
	}
	return &StepResult{Session: next, Doc: doc}, nil
}

// applyUpdate enforces the allow-list: the ViewState field refreshes the
// session, declared ids are collected, anything else is fatal.
func applyUpdate(sess Session, req StepRequest, ev PartialUpdate) (*StepResult, error) {
	expected := make(map[string]bool, len(req.Expected)+1)
	for _, id := range req.Expected {
		expected[id] = true
	}
	if req.Render != "" {
		expected[req.Render] = true
	}

	result := &StepResult{Session: sess, Updates: make(map[string]string)}
	for _, id := range ev.order {
		switch {
		case strings.Contains(id, "javax.faces.ViewState"):
			result.Session.ViewState = ev.Updates[id]
		case expected[id]:
			result.Updates[id] = ev.Updates[id]
		default:
			return nil, &UnexpectedFieldError{Field: id}
		}
	}
	return result, nil
}
