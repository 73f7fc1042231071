package httpx

import (
	"context"
	"io"
	"net/http"
	"time"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		return
	}
}

// HealthCheck checks one dependency, e.g. a database ping.
type HealthCheck func(ctx context.Context) error

// HealthHandlers reports service status and dependency reachability.
type HealthHandlers struct {
	Service string
	Checks  map[string]HealthCheck
	Timeout time.Duration
	Now     func() time.Time
}

// Status reports UP when every check passes and DOWN with a 503 otherwise.
// GET /api/health.
func (h *HealthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	status, code := "UP", http.StatusOK
	deps := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			deps[name] = "DOWN"
			status, code = "DOWN", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "UP"
	}

	body := map[string]any{
		"status":    status,
		"service":   h.Service,
		"timestamp": now().UnixMilli(),
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	WriteJSON(w, code, body)
}
