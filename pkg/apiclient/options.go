package apiclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/thostetler/nectar-sub000/pkg/token"
)

type Option func(*Client)

// WithBootstrapURL sets the endpoint that mints tokens. It may return the
// flat upstream payload or the {"user": {...}} envelope.
func WithBootstrapURL(u string) Option {
	return func(c *Client) { c.bootstrapURL = u }
}

// WithServerRendering sends every request once with whatever token is held.
// No bootstrap and no 401 retry happen in this mode.
func WithServerRendering() Option {
	return func(c *Client) { c.serverRendering = true }
}

// WithToken seeds the in-memory token.
func WithToken(t token.Token) Option {
	return func(c *Client) { c.token = &t }
}

func WithTokenStorage(s TokenStorage) Option {
	return func(c *Client) {
		if s != nil {
			c.storage = s
		}
	}
}

// WithMaxAttempts bounds bootstrap attempts per refresh, first try included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithRefreshHeader renames the header sent on forced refreshes.
func WithRefreshHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.refreshHeader = name
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request, bootstrap included. It applies to the
// client given to WithHTTPClient regardless of option order, without
// modifying that client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithoutDedupe sends every GET and HEAD even when an identical one is
// already in flight.
func WithoutDedupe() Option {
	return func(c *Client) { c.dedupe = false }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
