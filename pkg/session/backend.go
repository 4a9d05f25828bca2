package session

import (
	"context"
)

// Backend is where the authoritative session record lives.
type Backend interface {
	Name() string
	// Load returns the record for the session described by st. A miss is
	// (nil, nil). An error means the backend itself is unusable.
	Load(ctx context.Context, st State) (*Record, error)
	// Save persists a freshly bootstrapped record.
	Save(ctx context.Context, rec *Record) error
	// Touch refreshes the record's activity timestamp. It reports false when
	// the record could not be refreshed.
	Touch(ctx context.Context, id string) bool
}

const (
	BackendRedis  = "redis"
	BackendCookie = "cookie"
)

// RedisBackend keeps records in a Store.
type RedisBackend struct {
	store *Store
}

func NewRedisBackend(store *Store) *RedisBackend {
	return &RedisBackend{store: store}
}

func (b *RedisBackend) Name() string { return BackendRedis }

func (b *RedisBackend) Load(ctx context.Context, st State) (*Record, error) {
	return b.store.Lookup(ctx, st.SessionID)
}

func (b *RedisBackend) Save(ctx context.Context, rec *Record) error {
	return b.store.Save(ctx, rec.SessionID, rec)
}

func (b *RedisBackend) Touch(ctx context.Context, id string) bool {
	return b.store.Touch(ctx, id)
}

// CookieBackend treats the sealed cookie as the record. Saving and touching
// are no-ops because the Initializer rewrites the cookie itself.
type CookieBackend struct{}

func (CookieBackend) Name() string { return BackendCookie }

func (CookieBackend) Load(_ context.Context, st State) (*Record, error) {
	if st.Token.AccessToken == "" {
		return nil, nil
	}
	return st.record(), nil
}

func (CookieBackend) Save(context.Context, *Record) error { return nil }

func (CookieBackend) Touch(context.Context, string) bool { return true }
