// Package http provides the relay's HTTP middleware, health endpoints, and
// metrics endpoint. Relay routes live in the relay subpackage.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"drafty-relay/internal/handler/http/respond"
	"drafty-relay/internal/infra/generator"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the result of one health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ClientCounter reports how many clients the rate limiter tracks.
type ClientCounter interface {
	Len() int
}

// HealthHandler serves GET /health. An open circuit makes the relay
// "degraded" rather than unhealthy: requests still succeed with fallback
// text.
type HealthHandler struct {
	Generator   generator.HealthChecker
	RateLimiter ClientCounter
	Version     string
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]CheckStatus{
		"generator": checkGenerator(ctx, h.Generator),
	}
	if h.RateLimiter != nil {
		checks["rate_limiter"] = CheckStatus{
			Status:  statusHealthy,
			Details: map[string]any{"tracked_clients": h.RateLimiter.Len()},
		}
	}

	status := statusHealthy
	for _, c := range checks {
		if c.Status != statusHealthy {
			status = statusDegraded
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func checkGenerator(ctx context.Context, g generator.HealthChecker) CheckStatus {
	if g == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}

	hs, err := g.Health(ctx)
	if err != nil {
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err)}
	}
	if hs == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "no status reported"}
	}

	check := CheckStatus{
		Status:  statusHealthy,
		Message: hs.Message,
		Details: map[string]any{
			"provider":     hs.Provider,
			"circuit_open": hs.CircuitOpen,
		},
	}
	if hs.Latency > 0 {
		check.Details["latency_ms"] = hs.Latency.Milliseconds()
	}
	if !hs.Healthy {
		check.Status = statusUnhealthy
	}
	return check
}

// ReadyHandler serves GET /ready. It reports 503 while the generator is
// unhealthy so a load balancer can prefer another instance.
type ReadyHandler struct {
	Generator generator.HealthChecker
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	check := checkGenerator(ctx, h.Generator)
	if check.Status != statusHealthy {
		writeText(w, http.StatusServiceUnavailable, "not ready: "+check.Message)
		return
	}
	writeText(w, http.StatusOK, "ready")
}

// LiveHandler serves GET /live and always answers 200 while the process
// can respond.
type LiveHandler struct{}

// ServeHTTP implements http.Handler.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "alive")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Default().Error("failed to write response", slog.Any("error", err))
	}
}
