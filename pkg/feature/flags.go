package feature

import (
	"context"
	"log/slog"
	"strings"

	"github.com/thostetler/nectar-sub000/pkg/environment"
)

type Flags struct {
	redisSessions    bool
	rollout          Rollout
	redisRateLimit   bool
	activityTracking bool
	verbose          bool
}

// NewFromConfig resolves the derived defaults: rate limiting follows the
// session backend unless set explicitly, and development always logs
// verbosely.
func NewFromConfig(cfg Config) *Flags {
	rateLimit := cfg.RedisSessions
	switch strings.ToLower(strings.TrimSpace(cfg.RedisRateLimit)) {
	case "true":
		rateLimit = true
	case "false":
		rateLimit = false
	}

	return &Flags{
		redisSessions:    cfg.RedisSessions,
		rollout:          NewRollout(cfg.RolloutPercentage),
		redisRateLimit:   rateLimit,
		activityTracking: cfg.ActivityTracking,
		verbose:          cfg.VerboseSessionLogging || environment.Parse(cfg.Environment) == environment.Development,
	}
}

// Static returns flags with every toggle set explicitly. The networked store
// is used for all sessions when networked is true.
func Static(networked, activityTracking, verbose bool) *Flags {
	return &Flags{
		redisSessions:    networked,
		rollout:          NewRollout(100),
		redisRateLimit:   networked,
		activityTracking: activityTracking,
		verbose:          verbose,
	}
}

// UseNetworkedSessions decides which backend serves sessionID.
func (f *Flags) UseNetworkedSessions(sessionID string) bool {
	return f.redisSessions && f.rollout.Allows(sessionID)
}

// NetworkedSessionsEnabled reports whether the networked store is on at all,
// regardless of rollout.
func (f *Flags) NetworkedSessionsEnabled() bool { return f.redisSessions }

func (f *Flags) ActivityTracking() bool { return f.activityTracking }

func (f *Flags) VerboseLogging() bool { return f.verbose }

func (f *Flags) RedisRateLimit() bool { return f.redisRateLimit }

// Snapshot returns the flag values for diagnostics endpoints.
func (f *Flags) Snapshot() map[string]any {
	return map[string]any{
		"REDIS_SESSIONS_ENABLED":            f.redisSessions,
		"REDIS_SESSIONS_ROLLOUT_PERCENTAGE": f.rollout.Percentage,
		"REDIS_RATE_LIMIT_ENABLED":          f.redisRateLimit,
		"SESSION_ACTIVITY_TRACKING_ENABLED": f.activityTracking,
		"VERBOSE_SESSION_LOGGING":           f.verbose,
	}
}

// LogStatus writes the resolved flags at info level.
func (f *Flags) LogStatus(ctx context.Context, log *slog.Logger) {
	attrs := make([]any, 0, 5)
	for k, v := range f.Snapshot() {
		attrs = append(attrs, slog.Any(strings.ToLower(k), v))
	}
	log.InfoContext(ctx, "feature flags loaded", attrs...)
}
