package api

import (
	"context"
	"net/http"
)

// ReadinessProvider reports whether reads can be served.
type ReadinessProvider interface {
	Ready(ctx context.Context) bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	readiness ReadinessProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(readiness ReadinessProvider) *HealthHandler {
	return &HealthHandler{readiness: readiness}
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

// HandleHealth handles GET /healthz requests. The process is healthy while it
// serves; ready reports whether a stored run exists.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ready: h.readiness.Ready(r.Context())})
}
