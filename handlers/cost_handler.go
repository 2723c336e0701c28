package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-router/services/ledger"
	"github.com/upb/llm-router/utils"
)

// CostService exposes the spend counters tracked by the ledger.
type CostService interface {
	CostSummary() ledger.Summary
}

// CostHandler handles cost reporting requests
type CostHandler struct {
	service CostService
	logger  *zap.Logger
}

// NewCostHandler creates a new CostHandler
func NewCostHandler(service CostService, logger *zap.Logger) *CostHandler {
	return &CostHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSummary handles GET /api/v1/costs
func (h *CostHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.CostSummary())
}
