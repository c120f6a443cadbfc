package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/leadscore/pkg/metrics"
)

// HealthHandler handles liveness requests.
type HealthHandler struct {
	version string
	now     func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, now func() time.Time) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	return &HealthHandler{version: version, now: now}
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

// HandleHealth handles GET / requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Message:   "Lead Score Processing Service is running",
		Timestamp: h.now().Format(time.RFC3339),
		Version:   h.version,
	})
}

// MetricsHandler serves the custom metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
