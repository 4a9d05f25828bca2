package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thostetler/nectar-sub000/internal/app"
	"github.com/thostetler/nectar-sub000/pkg/bootstrap"
	"github.com/thostetler/nectar-sub000/pkg/feature"
	"github.com/thostetler/nectar-sub000/pkg/httpserver"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/ratelimit"
	"github.com/thostetler/nectar-sub000/pkg/redis"
	"github.com/thostetler/nectar-sub000/pkg/session"
)

const secret = "0123456789abcdef0123456789abcdef"

// testConfig leaves the cookie secret unset.
func testConfig(mr *miniredis.Miniredis, networked bool) app.Config {
	return app.Config{
		Name: "nectar-test",
		Env:  "development",
		Redis: redis.Config{
			ConnectionURL:  "redis://" + mr.Addr() + "/0",
			HealthInterval: 0,
			HealthTimeout:  200 * time.Millisecond,
			KeyPrefix:      "test_",
		},
		Session: session.DefaultConfig(),
		Bootstrap: bootstrap.Config{
			APIHost:    "http://127.0.0.1:1",
			Path:       "/v1/accounts/bootstrap",
			CookieName: "session",
			Timeout:    time.Second,
			Mocking:    "enabled",
		},
		Features: feature.Config{
			RedisSessions:     networked,
			RolloutPercentage: 100,
			ActivityTracking:  true,
		},
		RateLimit: ratelimit.Config{
			MaxRequests:     2,
			Window:          time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func newApp(t *testing.T, networked bool) (*app.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := testConfig(mr, networked)
	cfg.Cookie.Secrets = secret
	cfg.Cookie.Path = "/"

	a, err := app.New(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	cfg := testConfig(mr, true)
	_, err := app.New(cfg, logger.Discard())
	require.Error(t, err, "missing cookie secret")

	cfg.Cookie.Secrets = secret
	cfg.RateLimit.MaxRequests = 0
	_, err = app.New(cfg, logger.Discard())
	require.ErrorIs(t, err, ratelimit.ErrInvalidLimit)
}

func TestHandlerNetworked(t *testing.T) {
	t.Parallel()
	a, mr := newApp(t, true)
	h := a.Handler()

	rec := get(t, h, "/api/user")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	var user struct {
		IsAuthenticated bool `json:"isAuthenticated"`
		User            struct {
			AccessToken string `json:"access_token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.True(t, user.IsAuthenticated)
	assert.Equal(t, "mocked", user.User.AccessToken)

	var sealed bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "nectar_session" {
			sealed = true
		}
	}
	assert.True(t, sealed)

	var sessionKeys, limitKeys int
	for _, k := range mr.Keys() {
		switch {
		case strings.HasPrefix(k, "test_session:"):
			sessionKeys++
		case strings.HasPrefix(k, "test_rate_limit:"):
			limitKeys++
		}
	}
	assert.Equal(t, 1, sessionKeys)
	assert.Equal(t, 1, limitKeys)

	stats := a.Store().Stats(context.Background())
	assert.Equal(t, 1, stats.TotalSessions)
}

func TestHandlerRateLimitsUser(t *testing.T) {
	t.Parallel()
	a, _ := newApp(t, false)
	h := a.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/user").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/user").Code)
	rec := get(t, h, "/api/user")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(t, h, "/api/health").Code)
}

func TestHandlerProbes(t *testing.T) {
	t.Parallel()
	a, mr := newApp(t, true)
	h := a.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/livez").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/readyz").Code)

	body := get(t, h, "/api/health").Body.String()
	assert.Contains(t, body, `"status":"healthy"`)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/readyz").Code)
	assert.Contains(t, get(t, h, "/api/health").Body.String(), `"status":"degraded"`)

	// sessions keep working on the cookie backend
	assert.Equal(t, http.StatusOK, get(t, h, "/api/user").Code)
}

func TestHandlerMetrics(t *testing.T) {
	t.Parallel()
	a, _ := newApp(t, false)
	h := a.Handler()

	get(t, h, "/api/user")
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `nectar_session_initializations_total{backend="cookie",outcome="bootstrap"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServe(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	cfg := testConfig(mr, true)
	cfg.Cookie.Secrets = secret
	cfg.HTTP.Addr = "127.0.0.1:0"

	a, err := app.New(cfg, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	addrs := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Serve(ctx, httpserver.WithStartHook(func(addr string) { addrs <- addr }))
	}()

	var addr string
	select {
	case addr = <-addrs:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/livez")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_NAME", "nectar-env")
	t.Setenv("REDIS_KEY_PREFIX", "env_")
	t.Setenv("REDIS_SESSIONS_ENABLED", "true")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "7")
	t.Setenv("SESSION_TTL_BOT", "1h")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "nectar-env", cfg.Name)
	assert.Equal(t, "env_", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.Features.RedisSessions)
	assert.Equal(t, 7, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, time.Hour, cfg.Session.TTL.Bot)
	assert.Equal(t, "nectar_session", cfg.Session.CookieName)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
}
