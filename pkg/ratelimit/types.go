package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 if the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

type Limiter interface {
	// Allow records a request for key and reports whether it fits the limit.
	Allow(ctx context.Context, key string) (*Result, error)
	// Status reports the current state for key without recording a request.
	Status(ctx context.Context, key string) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Store keeps request timestamps per key.
type Store interface {
	// Hit discards entries at or before now-window, counts the rest and then
	// records now. The returned count does not include the new entry.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
	// Count returns the number of entries after now-window.
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}
