package handlers

import (
	"net/http"
	"time"

	"git.home.luguber.info/inful/portfolio/internal/server/responses"
	"git.home.luguber.info/inful/portfolio/internal/version"
)

// MonitoringHandlers serve liveness information.
type MonitoringHandlers struct {
	started time.Time
}

// NewMonitoringHandlers creates monitoring handlers; uptime counts from now.
func NewMonitoringHandlers() *MonitoringHandlers {
	return &MonitoringHandlers{started: time.Now()}
}

// HandleHealthCheck handles GET /api/health.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	_ = writeJSON(w, http.StatusOK, responses.HealthResponse{
		Status:    "ok",
		Timestamp: now,
		Version:   version.Version,
		Uptime:    now.Sub(h.started).Seconds(),
	})
}
