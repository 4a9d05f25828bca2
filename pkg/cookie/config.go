package cookie

import (
	"net/http"
	"strings"
)

type Config struct {
	Secrets  string `env:"SESSION_COOKIE_SECRETS"` // comma separated, newest first
	Path     string `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Domain   string `env:"SESSION_COOKIE_DOMAIN"`
	MaxAge   int    `env:"SESSION_COOKIE_MAX_AGE" envDefault:"2592000"`
	Secure   bool   `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	SameSite string `env:"SESSION_COOKIE_SAME_SITE" envDefault:"lax"`
}

func (c Config) secrets() []string {
	var out []string
	for s := range strings.SplitSeq(c.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// NewFromConfig creates a Manager from cfg. Extra options are applied after
// the configured ones.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	configOpts := []Option{
		WithPath(cfg.Path),
		WithDomain(cfg.Domain),
		WithMaxAge(cfg.MaxAge),
		WithSecure(cfg.Secure),
		WithSameSite(parseSameSite(cfg.SameSite)),
	}
	return New(cfg.secrets(), append(configOpts, opts...)...)
}
