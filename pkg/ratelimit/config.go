package ratelimit

import "time"

type Config struct {
	MaxRequests     int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	Window          time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"1m"`
}
