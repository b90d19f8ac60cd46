package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/taskshare/taskshare/internal/handler/dto"
)

// HealthChecker is anything that can report its own reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a HealthHandler. Nil checkers are reported as
// "not configured" and do not fail readiness.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{checks: map[string]HealthChecker{
		"postgres": db,
		"redis":    cache,
	}}
}

// Healthz reports that the process is serving. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "ok"}, "ok")
}

// Readyz pings every dependency and answers 503 if any is down.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, checker := range h.checks {
		if checker == nil {
			results[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			results[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, dto.Envelope{
			Success: false,
			Data:    results,
			Message: "unhealthy",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}
	ok(w, results, "ok")
}
