package session

import (
	"log/slog"
	"time"
)

// Option configures an Initializer.
type Option func(*Initializer)

func WithConfig(cfg Config) Option {
	return func(in *Initializer) { in.cfg = cfg }
}

// WithNetworkedBackend enables the shared backend. Without it every request
// is served by the cookie backend.
func WithNetworkedBackend(b Backend) Option {
	return func(in *Initializer) { in.networked = b }
}

// WithLocalBackend replaces the cookie backend used for fallback.
func WithLocalBackend(b Backend) Option {
	return func(in *Initializer) {
		if b != nil {
			in.local = b
		}
	}
}

func WithDecider(d Decider) Option {
	return func(in *Initializer) {
		if d != nil {
			in.flags = d
		}
	}
}

// WithBotDetector sets the hook run before every bootstrap. Requests it
// flags produce sessions tagged as bots.
func WithBotDetector(d BotDetector) Option {
	return func(in *Initializer) { in.bots = d }
}

func WithMetrics(m *Metrics) Option {
	return func(in *Initializer) { in.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Initializer) {
		if l != nil {
			in.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(in *Initializer) { in.now = now }
}
