package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/services"
)

// DigestHandler exposes the internal sweep trigger used by the scheduler.
type DigestHandler struct {
	digest *services.DigestService
	log    zerolog.Logger
}

func NewDigestHandler(digest *services.DigestService, log zerolog.Logger) *DigestHandler {
	return &DigestHandler{digest: digest, log: log}
}

// Run handles POST /api/internal/digest/run. It blocks until the sweep
// finishes and returns the sweep report.
func (h *DigestHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.digest.RunSweep(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("digest sweep failed")
		respond.WriteInternalError(w, "digest sweep failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, report)
}
