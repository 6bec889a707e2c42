package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillfire/impetus/internal/intervention"
)

// OpsHandler serves the health and metrics endpoints.
type OpsHandler struct {
	metrics *intervention.Metrics
}

// NewOpsHandler builds the handler. The metrics route is only mounted
// when counting is enabled.
func NewOpsHandler(metrics *intervention.Metrics) *OpsHandler {
	return &OpsHandler{metrics: metrics}
}

// Register mounts /healthz and, when enabled, /metrics.
func (h *OpsHandler) Register(r chi.Router) {
	r.Get("/healthz", h.health)
	if h.metrics != nil && h.metrics.Enabled() {
		r.Get("/metrics", h.snapshot)
	}
}

func (h *OpsHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"llm_calls": h.metrics.Snapshot(),
	})
}
