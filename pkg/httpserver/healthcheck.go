package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/thostetler/nectar-sub000/pkg/logger"
)

// Check is one named readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Probe serves liveness when called without checks and readiness otherwise.
// Readiness returns 503 listing every failing check.
func Probe(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := probeResponse{Status: "alive"}
		status := http.StatusOK

		if len(checks) > 0 {
			resp.Status = "ready"
			resp.Checks = make(map[string]string, len(checks))
			for _, c := range checks {
				if err := c.Fn(r.Context()); err != nil {
					log.ErrorContext(r.Context(), "readiness check failed",
						slog.String("check", c.Name), logger.Error(err))
					resp.Checks[c.Name] = "fail"
					resp.Status = "not_ready"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[c.Name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
