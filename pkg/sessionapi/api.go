package sessionapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thostetler/nectar-sub000/pkg/environment"
	"github.com/thostetler/nectar-sub000/pkg/handler"
	"github.com/thostetler/nectar-sub000/pkg/logger"
	"github.com/thostetler/nectar-sub000/pkg/session"
)

// SessionManager is the slice of session.Store the endpoints use.
type SessionManager interface {
	Get(ctx context.Context, id string) *session.Record
	UserSessions(ctx context.Context, userID string) []*session.Record
	Destroy(ctx context.Context, id string) bool
	DestroyAllUserSessions(ctx context.Context, userID, excludeID string) int
	Stats(ctx context.Context) session.Stats
}

type Flags interface {
	UseNetworkedSessions(sessionID string) bool
	NetworkedSessionsEnabled() bool
	Snapshot() map[string]any
}

// HealthChecker reports cached cache health.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
	LastHealthCheck() time.Time
}

type Middleware = func(http.Handler) http.Handler

type API struct {
	store     SessionManager
	flags     Flags
	health    HealthChecker
	env       environment.Environment
	session   Middleware
	userLimit Middleware
	log       *slog.Logger
	started   time.Time
	now       func() time.Time
}

type Option func(*API)

func WithHealthChecker(h HealthChecker) Option {
	return func(a *API) { a.health = h }
}

// WithEnvironment hides the flag snapshot from /api/health in production
// unless ?debug=true is passed.
func WithEnvironment(env environment.Environment) Option {
	return func(a *API) { a.env = env }
}

// WithSessionMiddleware installs the middleware that puts session.State in
// the request context, normally Initializer.Middleware.
func WithSessionMiddleware(mw Middleware) Option {
	return func(a *API) { a.session = mw }
}

// WithUserRateLimit wraps GET /api/user.
func WithUserRateLimit(mw Middleware) Option {
	return func(a *API) { a.userLimit = mw }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(a *API) { a.now = now }
}

func New(store SessionManager, flags Flags, opts ...Option) *API {
	a := &API{
		store: store,
		flags: flags,
		env:   environment.Development,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("sessionapi"))
	a.started = a.now()
	return a
}

// Mount registers the endpoints on r.
func (a *API) Mount(r chi.Router) {
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.Error(handler.ErrMethodNotAllowed).Render(w, r)
	})

	r.Get("/api/health", handler.Wrap(a.healthCheck, handler.WithLogger[struct{}](a.log)))

	r.Group(func(r chi.Router) {
		if a.session != nil {
			r.Use(a.session)
		}

		user := r
		if a.userLimit != nil {
			user = r.With(a.userLimit)
		}
		user.Get("/api/user", handler.Wrap(a.user, handler.WithLogger[struct{}](a.log)))

		r.Get("/api/sessions", handler.Wrap(a.listSessions, handler.WithLogger[struct{}](a.log)))
		r.Post("/api/sessions/revoke", handler.Wrap(a.revoke,
			handler.WithBinder[revokeRequest](bindRevoke),
			handler.WithLogger[revokeRequest](a.log),
		))
		r.Post("/api/sessions/revoke-all", handler.Wrap(a.revokeAll, handler.WithLogger[struct{}](a.log)))
	})
}

// Router returns a chi router serving only these endpoints.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	a.Mount(r)
	return r
}
