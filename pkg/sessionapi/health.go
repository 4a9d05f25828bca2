package sessionapi

import (
	"log/slog"
	"net/http"

	"github.com/thostetler/nectar-sub000/pkg/handler"
	"github.com/thostetler/nectar-sub000/pkg/session"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type redisHealth struct {
	Enabled         bool  `json:"enabled"`
	Healthy         bool  `json:"healthy"`
	LastHealthCheck int64 `json:"lastHealthCheck"`
}

type healthResponse struct {
	Status       string         `json:"status"`
	Timestamp    int64          `json:"timestamp"`
	Uptime       float64        `json:"uptime"`
	Redis        *redisHealth   `json:"redis,omitempty"`
	Sessions     *session.Stats `json:"sessions,omitempty"`
	FeatureFlags map[string]any `json:"featureFlags,omitempty"`
}

// healthCheck reports degraded, still with 200, when Redis sessions are on
// but Redis is unreachable: requests keep working on the cookie backend.
func (a *API) healthCheck(r *http.Request, _ struct{}) handler.Response {
	ctx := r.Context()
	now := a.now()
	resp := healthResponse{
		Status:    StatusHealthy,
		Timestamp: now.UnixMilli(),
		Uptime:    now.Sub(a.started).Seconds(),
	}

	if a.flags.NetworkedSessionsEnabled() {
		rh := &redisHealth{Enabled: true}
		if a.health != nil {
			rh.Healthy = a.health.Healthy(ctx)
			if t := a.health.LastHealthCheck(); !t.IsZero() {
				rh.LastHealthCheck = t.UnixMilli()
			}
		}
		resp.Redis = rh

		if rh.Healthy {
			stats := a.store.Stats(ctx)
			resp.Sessions = &stats
		} else {
			resp.Status = StatusDegraded
		}
	}

	if !a.env.IsProduction() || r.URL.Query().Get("debug") == "true" {
		resp.FeatureFlags = a.flags.Snapshot()
	}

	a.log.DebugContext(ctx, "health check", slog.String("status", resp.Status))
	return handler.JSON(http.StatusOK, resp)
}
