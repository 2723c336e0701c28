package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-router/utils"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string `json:"status"`
	Providers int    `json:"providers"`
	Timestamp string `json:"timestamp"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	service ProviderService
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service ProviderService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz. The process is healthy as soon as
// it serves traffic; provider count is informational.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "ok",
		Providers: len(h.service.Providers()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
