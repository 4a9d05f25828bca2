package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // redis://:password@host:6379/0
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
	HealthInterval time.Duration `env:"REDIS_HEALTH_INTERVAL" envDefault:"30s"` // how long a health probe result is reused
	HealthTimeout  time.Duration `env:"REDIS_HEALTH_TIMEOUT" envDefault:"500ms"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"scix_"`
}
