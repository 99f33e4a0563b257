package api

import (
	"context"
	"net/http"
	"time"

	"github.com/victorbash400/canary/internal/api/respond"
)

// HealthPinger is implemented by store drivers that can probe their
// backing database.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// HealthHandler serves liveness probes.
type HealthHandler struct {
	pinger HealthPinger
}

func NewHealthHandler(pinger HealthPinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Check handles GET /api/health. Reports degraded when the database is
// unreachable; the process itself is still alive.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.HealthPing(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	respond.WriteJSON(w, code, map[string]string{
		"status":  status,
		"service": "canary",
	})
}
