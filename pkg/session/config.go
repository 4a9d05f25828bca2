package session

import "time"

// TTLConfig holds how long a record lives in Redis after its last write.
type TTLConfig struct {
	Anonymous     time.Duration `env:"SESSION_TTL_ANONYMOUS" envDefault:"24h"`
	Authenticated time.Duration `env:"SESSION_TTL_AUTHENTICATED" envDefault:"720h"`
	Bot           time.Duration `env:"SESSION_TTL_BOT" envDefault:"168h"`
}

// For picks the TTL for rec. Bot wins over authenticated, which wins over
// anonymous.
func (c TTLConfig) For(rec *Record) time.Duration {
	switch {
	case rec.Bot:
		return c.Bot
	case rec.IsAuthenticated:
		return c.Authenticated
	default:
		return c.Anonymous
	}
}

type Config struct {
	TTL TTLConfig

	// CookieName is the sealed first-party cookie carrying State.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"nectar_session"`
	// RefreshHeader on an inbound request forces a bootstrap.
	RefreshHeader   string        `env:"SESSION_REFRESH_HEADER" envDefault:"X-Refresh-Token"`
	ScanCount       int64         `env:"SESSION_SCAN_COUNT" envDefault:"100"`
	TouchTimeout    time.Duration `env:"SESSION_TOUCH_TIMEOUT" envDefault:"2s"`
	TouchQueueSize  int           `env:"SESSION_TOUCH_QUEUE_SIZE" envDefault:"1024"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"` // 0 disables
}

func DefaultConfig() Config {
	return Config{
		TTL: TTLConfig{
			Anonymous:     24 * time.Hour,
			Authenticated: 30 * 24 * time.Hour,
			Bot:           7 * 24 * time.Hour,
		},
		CookieName:      "nectar_session",
		RefreshHeader:   "X-Refresh-Token",
		ScanCount:       100,
		TouchTimeout:    2 * time.Second,
		TouchQueueSize:  1024,
		CleanupInterval: time.Hour,
	}
}
