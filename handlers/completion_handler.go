package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/utils"
)

// CompletionService defines the engine operations the HTTP layer needs.
type CompletionService interface {
	Submit(ctx context.Context, req *providers.GenerationRequest) (*providers.Response, error)
}

// CompletionRequest represents a text generation request
type CompletionRequest struct {
	Prompt                  string            `json:"prompt" validate:"required"`
	TaskCategory            string            `json:"task_category,omitempty" validate:"omitempty,oneof=simple complex_planning creative analysis translation generation"`
	Context                 map[string]string `json:"context,omitempty"`
	Provider                string            `json:"provider,omitempty"`
	Model                   string            `json:"model,omitempty"`
	MaxTokens               int               `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Temperature             float64           `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Deterministic           bool              `json:"deterministic,omitempty"`
	NondeterministicContext bool              `json:"nondeterministic_context,omitempty"`
	NeedsCreativity         bool              `json:"needs_creativity,omitempty"`
	TimeSensitive           bool              `json:"time_sensitive,omitempty"`
}

// CompletionResponse represents a completed generation
type CompletionResponse struct {
	ID           string  `json:"id"`
	Content      string  `json:"content"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	DurationMs   int64   `json:"duration_ms"`
	Cached       bool    `json:"cached"`
	CreatedAt    string  `json:"created_at"`
}

// CompletionHandler handles text generation HTTP requests
type CompletionHandler struct {
	service CompletionService
	logger  *zap.Logger
}

// NewCompletionHandler creates a new CompletionHandler
func NewCompletionHandler(service CompletionService, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCompletion handles POST /api/v1/completions
func (h *CompletionHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var body CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&body); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	req := &providers.GenerationRequest{
		Prompt:                  body.Prompt,
		TaskCategory:            body.TaskCategory,
		Context:                 body.Context,
		Provider:                body.Provider,
		Model:                   body.Model,
		MaxTokens:               body.MaxTokens,
		Temperature:             body.Temperature,
		Deterministic:           body.Deterministic,
		NondeterministicContext: body.NondeterministicContext,
		NeedsCreativity:         body.NeedsCreativity,
		TimeSensitive:           body.TimeSensitive,
	}

	resp, err := h.service.Submit(ctx, req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, CompletionResponse{
		ID:           resp.ID.String(),
		Content:      resp.Content,
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Cost:         resp.Cost,
		DurationMs:   resp.Duration.Milliseconds(),
		Cached:       resp.Cached,
		CreatedAt:    resp.CreatedAt.Format(time.RFC3339),
	})
}
