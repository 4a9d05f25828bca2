package app

import (
	"github.com/thostetler/nectar-sub000/pkg/bootstrap"
	"github.com/thostetler/nectar-sub000/pkg/config"
	"github.com/thostetler/nectar-sub000/pkg/cookie"
	"github.com/thostetler/nectar-sub000/pkg/feature"
	"github.com/thostetler/nectar-sub000/pkg/httpserver"
	"github.com/thostetler/nectar-sub000/pkg/ratelimit"
	"github.com/thostetler/nectar-sub000/pkg/redis"
	"github.com/thostetler/nectar-sub000/pkg/session"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Name     string `env:"APP_NAME" envDefault:"nectar"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"` // overrides the environment default when set

	Redis     redis.Config
	Session   session.Config
	Cookie    cookie.Config
	Bootstrap bootstrap.Config
	Features  feature.Config
	RateLimit ratelimit.Config
	HTTP      httpserver.Config
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
