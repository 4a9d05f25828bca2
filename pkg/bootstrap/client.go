package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/requestid"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

const (
	maxBodySize = 1 << 20
	// MockExpiry never passes.
	MockExpiry token.Epoch = "99999999999999999"
)

// Result is a successful bootstrap.
type Result struct {
	Token *token.Token
	// Cookie is the upstream session cookie from Set-Cookie, nil when the
	// response did not set one.
	Cookie *http.Cookie
}

// CookieValue returns the upstream cookie value or "".
func (r *Result) CookieValue() string {
	if r == nil || r.Cookie == nil {
		return ""
	}
	return r.Cookie.Value
}

type Client struct {
	url        string
	cookieName string
	mock       bool
	httpClient *http.Client
	timeout    time.Duration
	log        *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the transport. Its Timeout bounds every bootstrap
// unless WithTimeout is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every bootstrap. It also applies to a client passed
// with WithHTTPClient, in either order, without modifying that client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithCookieName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.cookieName = name
		}
	}
}

// WithMock makes Bootstrap return a fixed, never-expiring token without
// contacting the upstream service.
func WithMock() Option {
	return func(c *Client) { c.mock = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the bootstrap endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		cookieName: "session",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// CookieName is the upstream session cookie name.
func (c *Client) CookieName() string { return c.cookieName }

// Bootstrap requests a token, forwarding cookie as the upstream session
// cookie when it is non-empty. It returns nil on any failure.
func (c *Client) Bootstrap(ctx context.Context, cookie string) *Result {
	if c.mock {
		return &Result{
			Token: &token.Token{
				AccessToken: "mocked",
				Username:    "mocked",
				ExpiresAt:   MockExpiry,
			},
			Cookie: &http.Cookie{Name: c.cookieName, Value: "mocked", Path: "/"},
		}
	}

	start := time.Now()
	res, err := c.do(ctx, cookie)
	if err != nil {
		c.log.ErrorContext(ctx, "bootstrap failed",
			logger.Component("bootstrap"),
			logger.URL(c.url),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return nil
	}

	c.log.DebugContext(ctx, "bootstrap succeeded",
		logger.Component("bootstrap"),
		logger.Duration(time.Since(start)),
		slog.Bool("anonymous", res.Token.Anonymous),
		slog.Bool("cookie", res.Cookie != nil),
	)
	return res
}

func (c *Client) do(ctx context.Context, cookie string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", c.cookieName+"="+cookie)
	}
	requestid.Propagate(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("bootstrap: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	tok, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: decode: %w", err)
	}

	return &Result{Token: tok, Cookie: c.sessionCookie(resp)}, nil
}

// sessionCookie picks the configured cookie from Set-Cookie, falling back to
// the first cookie set.
func (c *Client) sessionCookie(resp *http.Response) *http.Cookie {
	cookies := resp.Cookies()
	for _, ck := range cookies {
		if ck.Name == c.cookieName {
			return ck
		}
	}
	if len(cookies) > 0 {
		return cookies[0]
	}
	return nil
}
