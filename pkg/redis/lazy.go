package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lazy builds the shared client on first use and caches health probe results.
// go-redis dials on demand, so creating the client never blocks; a cache that
// is down only shows up as command errors and failed health probes.
type Lazy struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	client  redis.UniversalClient
	closed  bool
	checked time.Time
	healthy bool
}

func NewLazy(cfg Config) *Lazy {
	return &Lazy{cfg: cfg, now: time.Now}
}

// Client returns the shared client, creating it on the first call.
func (l *Lazy) Client() (redis.UniversalClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.client != nil {
		return l.client, nil
	}

	opt, err := parseOptions(l.cfg.ConnectionURL)
	if err != nil {
		return nil, err
	}
	l.client = redis.NewClient(opt)
	return l.client, nil
}

// KeyPrefix returns the configured key namespace.
func (l *Lazy) KeyPrefix() string { return l.cfg.KeyPrefix }

// Healthy pings the server at most once per HealthInterval and returns the
// cached result in between.
func (l *Lazy) Healthy(ctx context.Context) bool {
	client, err := l.Client()
	if err != nil {
		return false
	}

	l.mu.Lock()
	if !l.checked.IsZero() && l.now().Sub(l.checked) < l.cfg.HealthInterval {
		ok := l.healthy
		l.mu.Unlock()
		return ok
	}
	l.mu.Unlock()

	timeout := l.cfg.HealthTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok := Healthcheck(client)(pctx) == nil

	l.mu.Lock()
	l.checked = l.now()
	l.healthy = ok
	l.mu.Unlock()
	return ok
}

// LastHealthCheck returns when Healthy last probed the server, zero if never.
func (l *Lazy) LastHealthCheck() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checked
}

// Close releases the client. Subsequent calls to Client fail with ErrClosed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}
