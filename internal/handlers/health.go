package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/caphehouse/api/internal/platform/httpx"
)

var startTime = time.Now()

// Pinger verifies that a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers answers liveness and readiness probes.
type HealthHandlers struct {
	store Pinger
}

// NewHealthHandlers constructs health handlers. A nil store skips the
// readiness dependency check.
func NewHealthHandlers(store Pinger) *HealthHandlers {
	return &HealthHandlers{store: store}
}

// Healthz responds with a simple status payload for monitoring.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports ready only when the cart store answers a ping.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("not_ready", "cart store is unreachable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
