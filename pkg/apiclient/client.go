package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/thostetler/nectar-sub000/pkg/bootstrap"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/requestid"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

const (
	DefaultRefreshHeader = "X-Refresh-Token"
	DefaultMaxAttempts   = 3

	maxBodySize  = 10 << 20
	bootstrapKey = "bootstrap"
	refreshKey   = "bootstrap:forced"
)

// Request describes one API call. Path is joined to the Client base URL
// unless it is already absolute.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully read API response. Responses to deduplicated requests
// are shared between callers and must not be modified.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type failure struct {
	status int
	url    string
}

type Client struct {
	baseURL         string
	bootstrapURL    string
	refreshHeader   string
	serverRendering bool
	dedupe          bool
	maxAttempts     int
	backoff         Backoff
	storage         TokenStorage
	httpClient      *http.Client
	timeout         time.Duration
	log             *slog.Logger

	mu          sync.Mutex
	token       *token.Token
	invalidated bool
	recent      *failure

	boot    singleflight.Group
	pending singleflight.Group
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		bootstrapURL:  "/api/user",
		refreshHeader: DefaultRefreshHeader,
		dedupe:        true,
		maxAttempts:   DefaultMaxAttempts,
		backoff:       DefaultBackoff(),
		storage:       noStorage{},
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.log = c.log.With(logger.Component("apiclient"))
	return c
}

// Token returns a copy of the held token, if any.
func (c *Client) Token() (token.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return token.Token{}, false
	}
	return *c.token, true
}

// SetToken replaces the held token. Tokens without an access token are
// ignored.
func (c *Client) SetToken(t token.Token) {
	if t.AccessToken == "" {
		return
	}
	c.mu.Lock()
	c.token = &t
	c.mu.Unlock()
}

// Reset forgets the token and any recorded failure.
func (c *Client) Reset() {
	c.mu.Lock()
	c.token = nil
	c.invalidated = false
	c.recent = nil
	c.mu.Unlock()
}

// Do sends req with a bearer token. Non-2xx responses are returned as
// *StatusError; a spent bootstrap budget as ErrUnableToRefresh.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	if c.serverRendering {
		resp, err := c.send(ctx, req, target, c.heldAccessToken())
		if err != nil {
			return nil, err
		}
		if err := statusError(resp, target); err != nil {
			return nil, err
		}
		return resp, nil
	}

	if !c.dedupe || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		return c.request(ctx, req, target, false)
	}

	// The shared call outlives any single caller; each caller stops waiting
	// on its own ctx below.
	shared := context.WithoutCancel(ctx)
	ch := c.pending.DoChan(dedupeKey(req.Method, target, req.Header), func() (any, error) {
		return c.request(shared, req, target, false)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Response), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// request sends req, refreshing and retrying once on a 401. A call that has
// already retried rejects any further failure. The shared failure marker
// additionally rejects a failure that repeats the last one seen by any call.
func (c *Client) request(ctx context.Context, req *Request, target string, retried bool) (*Response, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, target, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		c.mu.Lock()
		c.recent = nil
		c.mu.Unlock()
		return resp, nil
	}

	f := failure{status: resp.StatusCode, url: target}
	c.mu.Lock()
	repeated := c.recent != nil && *c.recent == f
	if repeated {
		c.recent = nil
	} else {
		c.recent = &f
	}
	c.mu.Unlock()

	if repeated || retried {
		c.log.DebugContext(ctx, "rejecting repeated failure",
			logger.Status(f.status), logger.URL(f.url), slog.Bool("retried", retried))
		return nil, statusError(resp, target)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return nil, statusError(resp, target)
	}

	c.log.DebugContext(ctx, "unauthorized, refreshing token and retrying", logger.URL(target))
	c.invalidate(ctx)
	return c.request(ctx, req, target, true)
}

// accessToken picks the token for the next request: a forced refresh after a
// 401, else the held token, else storage, else a bootstrap.
func (c *Client) accessToken(ctx context.Context) (token.Token, error) {
	c.mu.Lock()
	invalidated := c.invalidated
	held := c.token
	c.mu.Unlock()

	if invalidated {
		return c.refresh(ctx, true)
	}
	if held != nil && held.IsValid() {
		return *held, nil
	}

	stored, err := c.storage.Load(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "failed to read stored token", logger.Error(err))
	}
	if stored != nil && stored.IsValid() {
		c.mu.Lock()
		c.token = stored
		c.mu.Unlock()
		return *stored, nil
	}

	return c.refresh(ctx, false)
}

// refresh joins or starts the shared bootstrap. Forced and plain refreshes
// never share a flight, so a forced caller always gets a token minted with
// the refresh header. The bootstrap itself ignores ctx cancellation so a
// refresh started for one caller completes for all.
func (c *Client) refresh(ctx context.Context, force bool) (token.Token, error) {
	key := bootstrapKey
	if force {
		key = refreshKey
	}
	detached := context.WithoutCancel(ctx)
	ch := c.boot.DoChan(key, func() (any, error) {
		if !force {
			if held, ok := c.validToken(); ok {
				return held, nil
			}
		}
		tok, err := c.bootstrapWithRetry(detached, force)
		if err != nil {
			return nil, err
		}
		c.adopt(detached, tok)
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return token.Token{}, res.Err
		}
		return res.Val.(token.Token), nil
	case <-ctx.Done():
		return token.Token{}, ctx.Err()
	}
}

func (c *Client) bootstrapWithRetry(ctx context.Context, force bool) (token.Token, error) {
	var errs []error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff.NextInterval(attempt-1)); err != nil {
				errs = append(errs, err)
				break
			}
		}

		tok, err := c.bootstrap(ctx, force)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
		c.log.WarnContext(ctx, "bootstrap attempt failed",
			logger.Attempt(attempt), slog.Bool("forced", force), logger.Error(err))
	}

	c.log.ErrorContext(ctx, "unable to refresh token", slog.Int("attempts", c.maxAttempts))
	return token.Token{}, errors.Join(append([]error{ErrUnableToRefresh}, errs...)...)
}

func (c *Client) bootstrap(ctx context.Context, force bool) (token.Token, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bootstrapTarget(), nil)
	if err != nil {
		return token.Token{}, errors.Join(ErrBootstrapFailed, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if force {
		httpReq.Header.Set(c.refreshHeader, "1")
	}
	requestid.Propagate(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return token.Token{}, errors.Join(ErrBootstrapFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return token.Token{}, errors.Join(ErrBootstrapFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return token.Token{}, fmt.Errorf("%w: status %d", ErrBootstrapFailed, resp.StatusCode)
	}

	tok, err := bootstrap.Decode(body)
	if err != nil {
		return token.Token{}, errors.Join(ErrBootstrapFailed, err)
	}
	if !tok.IsValid() {
		return token.Token{}, fmt.Errorf("%w: token invalid or expired", ErrBootstrapFailed)
	}
	return *tok, nil
}

func (c *Client) adopt(ctx context.Context, tok token.Token) {
	c.mu.Lock()
	c.token = &tok
	c.invalidated = false
	c.mu.Unlock()

	if err := c.storage.Save(ctx, tok); err != nil {
		c.log.WarnContext(ctx, "failed to persist token", logger.Error(err))
	}
}

func (c *Client) invalidate(ctx context.Context) {
	c.mu.Lock()
	c.token = nil
	c.invalidated = true
	c.mu.Unlock()

	if err := c.storage.Clear(ctx); err != nil {
		c.log.WarnContext(ctx, "failed to clear stored token", logger.Error(err))
	}
}

func (c *Client) validToken() (token.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidated || c.token == nil || !c.token.IsValid() {
		return token.Token{}, false
	}
	return *c.token, true
}

func (c *Client) heldAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

func (c *Client) send(ctx context.Context, req *Request, target, accessToken string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	requestid.Propagate(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) resolve(req *Request) (string, error) {
	raw := req.Path
	if !strings.Contains(raw, "://") {
		raw = c.baseURL + "/" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Join(ErrInvalidRequest, err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) bootstrapTarget() string {
	if strings.Contains(c.bootstrapURL, "://") {
		return c.bootstrapURL
	}
	return c.baseURL + "/" + strings.TrimLeft(c.bootstrapURL, "/")
}

func statusError(resp *Response, target string) error {
	if resp.StatusCode < 400 {
		return nil
	}
	return &StatusError{Status: resp.StatusCode, URL: target, Body: resp.Body}
}

func dedupeKey(method, target string, h http.Header) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(target)
	for _, k := range slices.Sorted(maps.Keys(h)) {
		b.WriteByte('\n')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.Join(h[k], ","))
	}
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
