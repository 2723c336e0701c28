package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services/inference"
	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/utils"
)

// echoProvider returns a fixed completion
type echoProvider struct {
	name string
}

func (e *echoProvider) Name() string { return e.name }

func (e *echoProvider) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	return &providers.GenerationResult{
		Content:      "echo: " + req.Prompt,
		InputTokens:  10,
		OutputTokens: 5,
		Model:        "model-a",
	}, nil
}

func (e *echoProvider) Available(ctx context.Context) bool { return true }

func newTestServiceWithProvider(t *testing.T) *inference.Service {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	svc := inference.New(inference.Config{}, logger)

	cfg := providers.Config{
		ID:               "echo",
		Models:           []string{"model-a"},
		InputPricePer1K:  1.0,
		OutputPricePer1K: 2.0,
		MaxContextTokens: 8192,
		Capabilities: []string{
			providers.CapabilitySimple,
			providers.CapabilityAnalysis,
		},
	}
	require.NoError(t, svc.RegisterProviderWith(cfg, &echoProvider{name: "echo"}))
	return svc
}

func TestCompletionHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("serves a completion", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewCompletionHandler(svc, logger)

		body, _ := json.Marshal(CompletionRequest{Prompt: "hello world"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp utils.SuccessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "echo: hello world", data["content"])
		assert.Equal(t, "echo", data["provider"])
		assert.Equal(t, false, data["cached"])
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewCompletionHandler(svc, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing prompt", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewCompletionHandler(svc, logger)

		body, _ := json.Marshal(map[string]string{"model": "model-a"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown task category", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewCompletionHandler(svc, logger)

		body, _ := json.Marshal(map[string]string{"prompt": "hi", "task_category": "sorcery"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no provider maps to 503", func(t *testing.T) {
		logger, _ := zap.NewDevelopment()
		svc := inference.New(inference.Config{}, logger)
		h := NewCompletionHandler(svc, logger)

		body, _ := json.Marshal(CompletionRequest{Prompt: "hello"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unavailable override maps to 503", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewCompletionHandler(svc, logger)

		body, _ := json.Marshal(CompletionRequest{Prompt: "hello", Provider: "ghost"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleCompletion(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestProviderHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("registers a provider", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewProviderHandler(svc, logger)

		body, _ := json.Marshal(map[string]interface{}{
			"id":                  "backup",
			"endpoint":            "http://backup.internal:8000/generate",
			"credential":          "sk-secret",
			"models":              []string{"model-b"},
			"max_context_tokens":  4096,
			"capabilities":        []string{"simple"},
			"output_price_per_1k": 0.5,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/providers", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleRegister(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, svc.Providers(), 2)
	})

	t.Run("invalid config maps to 400", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewProviderHandler(svc, logger)

		body, _ := json.Marshal(map[string]interface{}{"id": "incomplete"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/providers", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleRegister(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("listing never leaks credentials", func(t *testing.T) {
		svc := newTestServiceWithProvider(t)
		h := NewProviderHandler(svc, logger)

		body, _ := json.Marshal(map[string]interface{}{
			"id":                 "secretive",
			"credential":         "sk-super-secret",
			"models":             []string{"model-b"},
			"max_context_tokens": 4096,
			"capabilities":       []string{"simple"},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/providers", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.HandleRegister(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		listReq := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
		listRec := httptest.NewRecorder()
		h.HandleList(listRec, listReq)

		require.Equal(t, http.StatusOK, listRec.Code)
		assert.NotContains(t, listRec.Body.String(), "sk-super-secret")
	})
}

func TestCostHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	svc := newTestServiceWithProvider(t)

	// Produce some spend
	compl := NewCompletionHandler(svc, logger)
	body, _ := json.Marshal(CompletionRequest{Prompt: "hello"})
	rec := httptest.NewRecorder()
	compl.HandleCompletion(rec, httptest.NewRequest(http.MethodPost, "/api/v1/completions", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	h := NewCostHandler(svc, logger)
	costRec := httptest.NewRecorder()
	h.HandleSummary(costRec, httptest.NewRequest(http.MethodGet, "/api/v1/costs", nil))

	require.Equal(t, http.StatusOK, costRec.Code)

	var resp utils.SuccessResponse
	require.NoError(t, json.Unmarshal(costRec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	// 10×$1/1K + 5×$2/1K = $0.02
	assert.InDelta(t, 0.02, data["total_spend"].(float64), 1e-9)
}

func TestHealthHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	svc := newTestServiceWithProvider(t)
	h := NewHealthHandler(svc, logger)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.Providers)
}
