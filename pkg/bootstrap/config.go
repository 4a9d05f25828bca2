package bootstrap

import "time"

type Config struct {
	APIHost    string        `env:"API_HOST_SERVER" envDefault:"http://localhost:5000"`
	Path       string        `env:"BOOTSTRAP_PATH" envDefault:"/v1/accounts/bootstrap"`
	CookieName string        `env:"UPSTREAM_SESSION_COOKIE_NAME" envDefault:"session"`
	Timeout    time.Duration `env:"BOOTSTRAP_TIMEOUT" envDefault:"10s"`
	Mocking    string        `env:"API_MOCKING"` // "enabled" short-circuits the upstream call
}

// NewFromConfig creates a Client from cfg. Extra options are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	configOpts := []Option{
		WithCookieName(cfg.CookieName),
		WithTimeout(cfg.Timeout),
	}
	if cfg.Mocking == "enabled" {
		configOpts = append(configOpts, WithMock())
	}
	return New(cfg.APIHost+cfg.Path, append(configOpts, opts...)...)
}
