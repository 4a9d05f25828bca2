package sessionapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thostetler/nectar-sub000/pkg/environment"
	"github.com/thostetler/nectar-sub000/pkg/feature"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/session"
	"github.com/thostetler/nectar-sub000/pkg/sessionapi"
	"github.com/thostetler/nectar-sub000/pkg/token"
)

const farFuture token.Epoch = "99999999999999999"

type staticHealth struct {
	healthy bool
	checked time.Time
}

func (h staticHealth) Healthy(context.Context) bool { return h.healthy }
func (h staticHealth) LastHealthCheck() time.Time   { return h.checked }

type fixture struct {
	store *session.Store
	mr    *miniredis.Miniredis
	api   *sessionapi.API
	// state is injected into every request when non-nil.
	state *session.State
}

func newFixture(t *testing.T, networked bool, opts ...sessionapi.Option) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store: session.NewStore(client, session.WithStoreLogger(logger.Discard())),
		mr:    mr,
	}
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.state != nil {
				st := *f.state
				r = r.WithContext(session.WithState(r.Context(), &st))
			}
			next.ServeHTTP(w, r)
		})
	}
	opts = append([]sessionapi.Option{
		sessionapi.WithLogger(logger.Discard()),
		sessionapi.WithSessionMiddleware(inject),
		sessionapi.WithHealthChecker(staticHealth{healthy: true, checked: time.UnixMilli(1_700_000_000_000)}),
	}, opts...)
	f.api = sessionapi.New(f.store, feature.Static(networked, true, false), opts...)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.api.Router().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) signIn(id, user string) {
	f.state = &session.State{
		SessionID:       id,
		IsAuthenticated: true,
		Token:           token.Token{AccessToken: "tok-" + user, Username: user, ExpiresAt: farFuture},
	}
}

func (f *fixture) seed(t *testing.T, id, user string, lastActivity int64) {
	t.Helper()
	rec := &session.Record{
		SessionID:       id,
		UserID:          user,
		Username:        user,
		IsAuthenticated: true,
		Token:           token.Token{AccessToken: "tok-" + user, Username: user, ExpiresAt: farFuture},
		CreatedAt:       1_700_000_000_000,
		UserAgent:       "agent-" + id,
		IP:              "192.0.2.1",
	}
	require.True(t, f.store.Set(context.Background(), id, rec))
	f.mr.Set("session:"+id, mustRewrite(t, f.mr.Get, "session:"+id, lastActivity))
}

// mustRewrite pins lastActivity, which Save stamps with the wall clock.
func mustRewrite(t *testing.T, get func(string) (string, error), key string, lastActivity int64) string {
	t.Helper()
	raw, err := get(key)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	rec["lastActivity"] = lastActivity
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	return string(out)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUser(t *testing.T) {
	t.Parallel()

	t.Run("no state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		rec := f.do(t, http.MethodGet, "/api/user", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["isAuthenticated"])
		assert.Nil(t, body["user"])
	})

	t.Run("signed in", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.signIn("s1", "alice@example.com")
		rec := f.do(t, http.MethodGet, "/api/user", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["isAuthenticated"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "tok-alice@example.com", user["access_token"])
		assert.Equal(t, "alice@example.com", user["username"])
	})

	t.Run("rate limit middleware wraps only this route", func(t *testing.T) {
		t.Parallel()
		deny := func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})
		}
		f := newFixture(t, true, sessionapi.WithUserRateLimit(deny))
		assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/api/user", "").Code)
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/health", "").Code)
	})
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	t.Run("cookie backend", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.signIn("s1", "alice")
		rec := f.do(t, http.MethodGet, "/api/sessions", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "session-management-unavailable", decode(t, rec)["error"])
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.state = &session.State{SessionID: "s1", Token: token.Token{AccessToken: "x", Username: token.AnonymousUsername, Anonymous: true}}
		rec := f.do(t, http.MethodGet, "/api/sessions", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decode(t, rec)["error"])
	})

	t.Run("no state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/sessions", "").Code)
	})

	t.Run("newest first with current flag", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.seed(t, "s1", "alice", 1000)
		f.seed(t, "s2", "alice", 3000)
		f.seed(t, "s3", "alice", 2000)
		f.seed(t, "other", "bob", 4000)
		f.signIn("s3", "alice")

		rec := f.do(t, http.MethodGet, "/api/sessions", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Success  bool `json:"success"`
			Sessions []struct {
				SessionID    string `json:"sessionId"`
				LastActivity int64  `json:"lastActivity"`
				UserAgent    string `json:"userAgent"`
				Current      bool   `json:"current"`
			} `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		require.Len(t, body.Sessions, 3)
		assert.Equal(t, "s2", body.Sessions[0].SessionID)
		assert.Equal(t, "s3", body.Sessions[1].SessionID)
		assert.Equal(t, "s1", body.Sessions[2].SessionID)
		assert.True(t, body.Sessions[1].Current)
		assert.False(t, body.Sessions[0].Current)
		assert.Equal(t, "agent-s2", body.Sessions[0].UserAgent)
	})
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		status int
		errKey string
	}{
		{name: "missing id", body: `{}`, status: http.StatusBadRequest, errKey: "missing-session-id"},
		{name: "current session", body: `{"sessionId":"s1"}`, status: http.StatusBadRequest, errKey: "cannot-revoke-current-session"},
		{name: "unknown session", body: `{"sessionId":"nope"}`, status: http.StatusNotFound, errKey: "session-not-found"},
		{name: "other user's session", body: `{"sessionId":"bob-1"}`, status: http.StatusNotFound, errKey: "session-not-found"},
		{name: "malformed body", body: `{"sessionId":`, status: http.StatusBadRequest, errKey: "invalid-request-body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, true)
			f.seed(t, "s1", "alice", 1000)
			f.seed(t, "bob-1", "bob", 1000)
			f.signIn("s1", "alice")

			rec := f.do(t, http.MethodPost, "/api/sessions/revoke", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.errKey, body["error"])
			assert.True(t, f.mr.Exists("session:bob-1"))
		})
	}

	t.Run("own session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.seed(t, "s1", "alice", 1000)
		f.seed(t, "s2", "alice", 2000)
		f.signIn("s1", "alice")

		rec := f.do(t, http.MethodPost, "/api/sessions/revoke", `{"sessionId":"s2"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["success"])
		assert.False(t, f.mr.Exists("session:s2"))
		assert.False(t, f.mr.Exists("session_index:alice:s2"))
		assert.True(t, f.mr.Exists("session:s1"))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		rec := f.do(t, http.MethodPost, "/api/sessions/revoke", `{"sessionId":"s2"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRevokeAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.seed(t, "s1", "alice", 1000)
	f.seed(t, "s2", "alice", 2000)
	f.seed(t, "s3", "alice", 3000)
	f.seed(t, "bob-1", "bob", 1000)
	f.signIn("s1", "alice")

	rec := f.do(t, http.MethodPost, "/api/sessions/revoke-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])

	assert.True(t, f.mr.Exists("session:s1"))
	assert.False(t, f.mr.Exists("session:s2"))
	assert.False(t, f.mr.Exists("session:s3"))
	assert.True(t, f.mr.Exists("session:bob-1"))

	rec = f.do(t, http.MethodPost, "/api/sessions/revoke-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.seed(t, "s1", "alice", 1000)

		rec := f.do(t, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, sessionapi.StatusHealthy, body["status"])

		redis := body["redis"].(map[string]any)
		assert.Equal(t, true, redis["enabled"])
		assert.Equal(t, true, redis["healthy"])
		assert.EqualValues(t, 1_700_000_000_000, redis["lastHealthCheck"])

		sessions := body["sessions"].(map[string]any)
		assert.EqualValues(t, 1, sessions["totalSessions"])
		assert.EqualValues(t, 1, sessions["totalIndexes"])
		assert.Contains(t, body, "featureFlags")
		assert.Contains(t, body, "uptime")
	})

	t.Run("degraded", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, sessionapi.WithHealthChecker(staticHealth{}))
		rec := f.do(t, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, sessionapi.StatusDegraded, body["status"])
		assert.NotContains(t, body, "sessions")
		assert.EqualValues(t, 0, body["redis"].(map[string]any)["lastHealthCheck"])
	})

	t.Run("cookie backend", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		body := decode(t, f.do(t, http.MethodGet, "/api/health", ""))
		assert.Equal(t, sessionapi.StatusHealthy, body["status"])
		assert.NotContains(t, body, "redis")
	})

	t.Run("production hides flags unless debugging", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, sessionapi.WithEnvironment(environment.Production))
		assert.NotContains(t, decode(t, f.do(t, http.MethodGet, "/api/health", "")), "featureFlags")

		flags := decode(t, f.do(t, http.MethodGet, "/api/health?debug=true", ""))["featureFlags"].(map[string]any)
		assert.Equal(t, true, flags["REDIS_SESSIONS_ENABLED"])
	})
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/sessions/revoke", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method-not-allowed", decode(t, rec)["error"])
}
