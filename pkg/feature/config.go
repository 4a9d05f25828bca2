package feature

type Config struct {
	RedisSessions         bool   `env:"REDIS_SESSIONS_ENABLED" envDefault:"false"`
	RolloutPercentage     int    `env:"REDIS_SESSIONS_ROLLOUT_PERCENTAGE" envDefault:"100"`
	RedisRateLimit        string `env:"REDIS_RATE_LIMIT_ENABLED"` // unset follows REDIS_SESSIONS_ENABLED
	ActivityTracking      bool   `env:"SESSION_ACTIVITY_TRACKING_ENABLED" envDefault:"true"`
	VerboseSessionLogging bool   `env:"VERBOSE_SESSION_LOGGING" envDefault:"false"`
	Environment           string `env:"APP_ENV" envDefault:"development"`
}
