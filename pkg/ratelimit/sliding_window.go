package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thostetler/nectar-sub000/pkg/logger"
)

// SlidingWindow allows at most limit requests per key in any window-long
// interval. Rejected requests are recorded too, so a client hammering past
// the limit stays limited until it backs off for a full window.
type SlidingWindow struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
	log    *slog.Logger
}

type Option func(*SlidingWindow)

func WithLogger(l *slog.Logger) Option {
	return func(sw *SlidingWindow) {
		if l != nil {
			sw.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(sw *SlidingWindow) { sw.now = now }
}

func NewSlidingWindow(store Store, limit int, window time.Duration, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}

	sw := &SlidingWindow{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	sw.log = sw.log.With(logger.Component("ratelimit"))
	return sw, nil
}

// NewFromConfig builds a limiter over store using cfg's limit and window.
func NewFromConfig(cfg Config, store Store, opts ...Option) (*SlidingWindow, error) {
	return NewSlidingWindow(store, cfg.MaxRequests, cfg.Window, opts...)
}

func (sw *SlidingWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := sw.now()
	count, err := sw.store.Hit(ctx, key, now, sw.window)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	allowed := count < int64(sw.limit)
	if !allowed {
		sw.log.WarnContext(ctx, "rate limit exceeded",
			slog.String("key", key), slog.Int64("count", count), slog.Int("limit", sw.limit))
	}

	return &Result{
		Allowed:   allowed,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-int(count)-1),
		ResetAt:   now.Add(sw.window),
	}, nil
}

func (sw *SlidingWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := sw.now()
	count, err := sw.store.Count(ctx, key, now, sw.window)
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	remaining := sw.limit - int(count)
	return &Result{
		Allowed:   remaining > 0,
		Limit:     sw.limit,
		Remaining: max(0, remaining),
		ResetAt:   now.Add(sw.window),
	}, nil
}

func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if err := sw.store.Delete(ctx, key); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}
