package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/utils"
)

// ProviderService defines the registry operations the HTTP layer needs.
type ProviderService interface {
	RegisterProvider(cfg providers.Config) error
	Providers() []providers.Info
}

// ProviderHandler handles provider registration and listing
type ProviderHandler struct {
	service ProviderService
	logger  *zap.Logger
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(service ProviderService, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRegister handles POST /api/v1/providers. Registering an existing
// id replaces its configuration while keeping its reliability history.
func (h *ProviderHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var cfg providers.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.logger.Warn("failed to parse provider config",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.RegisterProvider(cfg); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("provider registered",
		zap.String("request_id", requestID),
		zap.String("provider", cfg.ID))
	_ = utils.WriteCreated(w, map[string]string{"id": cfg.ID})
}

// HandleList handles GET /api/v1/providers. Credentials are never
// included in the listing.
func (h *ProviderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.Providers())
}
