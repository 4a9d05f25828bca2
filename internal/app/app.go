// Package app assembles the nectar server from its packages.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thostetler/nectar-sub000/pkg/bootstrap"
	"github.com/thostetler/nectar-sub000/pkg/botcheck"
	"github.com/thostetler/nectar-sub000/pkg/clientip"
	"github.com/thostetler/nectar-sub000/pkg/cookie"
	"github.com/thostetler/nectar-sub000/pkg/environment"
	"github.com/thostetler/nectar-sub000/pkg/feature"
	"github.com/thostetler/nectar-sub000/pkg/httpserver"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/ratelimit"
	"github.com/thostetler/nectar-sub000/pkg/redis"
	"github.com/thostetler/nectar-sub000/pkg/requestid"
	"github.com/thostetler/nectar-sub000/pkg/session"
	"github.com/thostetler/nectar-sub000/pkg/sessionapi"
)

// App owns every long-lived component of a running server.
type App struct {
	cfg   Config
	env   environment.Environment
	log   *slog.Logger
	flags *feature.Flags

	cache       *redis.Lazy
	store       *session.Store
	initializer *session.Initializer
	limiter     *ratelimit.SlidingWindow
	memLimits   *ratelimit.MemoryStore
	registry    *prometheus.Registry
	api         *sessionapi.API
}

// NewLogger builds the process logger for cfg.
func NewLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(environment.Parse(cfg.Env), cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if lvl, ok := parseLevel(cfg.LogLevel); ok {
		opts = append(opts, logger.WithLevel(lvl))
	}
	return logger.New(opts...)
}

func parseLevel(s string) (slog.Level, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return lvl, true
}

// New wires the components described by cfg. Nothing dials Redis here; the
// first command issued does.
func New(cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		cfg:      cfg,
		env:      environment.Parse(cfg.Env),
		log:      log,
		flags:    feature.NewFromConfig(cfg.Features),
		cache:    redis.NewLazy(cfg.Redis),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sealer, err := cookie.NewFromConfig(cfg.Cookie,
		cookie.WithSecure(cfg.Cookie.Secure || a.env.SecureCookies()))
	if err != nil {
		return nil, err
	}

	client, err := a.cache.Client()
	if err != nil {
		return nil, err
	}
	a.store = session.NewStore(client,
		session.WithKeyPrefix(cfg.Redis.KeyPrefix),
		session.WithTTL(cfg.Session.TTL),
		session.WithScanCount(cfg.Session.ScanCount),
		session.WithStoreLogger(log),
	)

	initOpts := []session.Option{
		session.WithConfig(cfg.Session),
		session.WithDecider(a.flags),
		session.WithBotDetector(botcheck.New()),
		session.WithMetrics(session.NewMetrics(a.registry)),
		session.WithLogger(log),
	}
	if a.flags.NetworkedSessionsEnabled() {
		initOpts = append(initOpts, session.WithNetworkedBackend(session.NewRedisBackend(a.store)))
	}
	a.initializer = session.NewInitializer(
		bootstrap.NewFromConfig(cfg.Bootstrap, bootstrap.WithLogger(log)),
		sealer,
		initOpts...,
	)

	var limits ratelimit.Store
	if a.flags.RedisRateLimit() {
		limits = ratelimit.NewRedisStore(client, cfg.Redis.KeyPrefix)
	} else {
		a.memLimits = ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(cfg.RateLimit.CleanupInterval))
		limits = a.memLimits
	}
	a.limiter, err = ratelimit.NewFromConfig(cfg.RateLimit, limits, ratelimit.WithLogger(log))
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.api = sessionapi.New(a.store, a.flags,
		sessionapi.WithHealthChecker(a.cache),
		sessionapi.WithEnvironment(a.env),
		sessionapi.WithSessionMiddleware(a.initializer.Middleware),
		sessionapi.WithUserRateLimit(ratelimit.Middleware(a.limiter, ratelimit.WithMiddlewareLogger(log))),
		sessionapi.WithLogger(log),
	)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware)

	r.Get("/livez", httpserver.Probe(a.log))
	r.Get("/readyz", httpserver.Probe(a.log, httpserver.Check{Name: "redis", Fn: a.ready}))
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.api.Mount(r)
	return r
}

// ready fails only when Redis sessions are on and Redis is down.
func (a *App) ready(ctx context.Context) error {
	if !a.flags.NetworkedSessionsEnabled() || a.cache.Healthy(ctx) {
		return nil
	}
	return redis.ErrHealthcheckFailed
}

func (a *App) Flags() *feature.Flags { return a.flags }

// Healthy probes Redis, reusing a recent result.
func (a *App) Healthy(ctx context.Context) bool { return a.cache.Healthy(ctx) }

func (a *App) Store() *session.Store { return a.store }

// Serve runs the HTTP server until ctx is cancelled or a shutdown signal
// arrives, then releases every component.
func (a *App) Serve(ctx context.Context, opts ...httpserver.Option) error {
	a.flags.LogStatus(ctx, a.log)

	if a.flags.NetworkedSessionsEnabled() && a.cfg.Session.CleanupInterval > 0 {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.store.RunCleanup(cctx, a.cfg.Session.CleanupInterval)
	}

	opts = append([]httpserver.Option{
		httpserver.WithLogger(a.log),
		httpserver.WithStopHook(a.Close),
	}, opts...)
	return httpserver.NewFromConfig(a.cfg.HTTP, opts...).Run(ctx, a.Handler())
}

// Close stops background workers and closes the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.initializer != nil {
		errs = append(errs, a.initializer.Close())
	}
	if a.memLimits != nil {
		errs = append(errs, a.memLimits.Close())
	}
	errs = append(errs, a.cache.Close())
	return errors.Join(errs...)
}
