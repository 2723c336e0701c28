// Package httpadapter invokes a remote provider at its declared endpoint
// with a JSON request body, attaching the credential per the provider's
// declared auth scheme. Retries are the execution engine's concern; the
// adapter performs exactly one attempt per call.
package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/llm-router/services/providers"
)

const authSchemeBearer = "bearer"

// generateRequest is the wire request body.
type generateRequest struct {
	Prompt    string            `json:"prompt"`
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Context   map[string]string `json:"context,omitempty"`

	Temperature float64 `json:"temperature"`
}

// generateResponse is the expected 2xx wire response body.
type generateResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Adapter is a Provider over a generic HTTP JSON endpoint.
type Adapter struct {
	config     providers.Config
	httpClient *http.Client
}

// New creates an Adapter from the provider config.
func New(cfg providers.Config) *Adapter {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	return &Adapter{
		config: cfg,
		// Per-attempt deadlines come from the caller's context; the
		// client timeout is only a hard upper bound
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name returns the provider id
func (a *Adapter) Name() string {
	return a.config.ID
}

// Available always reports true for remote providers; unreachability
// surfaces as a transient attempt failure instead.
func (a *Adapter) Available(_ context.Context) bool {
	return true
}

// Generate performs one generation attempt.
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = a.config.DefaultModel()
	}

	body, err := json.Marshal(generateRequest{
		Prompt:      req.Prompt,
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Context:     req.Context,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, a.config.Method, a.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	a.attachCredential(httpReq)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "transport error", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, a.errorFromStatus(httpResp.StatusCode, respBody)
	}

	var wire generateResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, true, err)
	}

	if wire.Model == "" {
		wire.Model = model
	}
	return &providers.GenerationResult{
		Content:      wire.Content,
		InputTokens:  wire.Usage.InputTokens,
		OutputTokens: wire.Usage.OutputTokens,
		Model:        wire.Model,
	}, nil
}

// attachCredential sets the auth header per the declared scheme: "bearer"
// produces an Authorization header, anything else is used as the header
// name for the raw credential.
func (a *Adapter) attachCredential(req *http.Request) {
	credential := a.config.Credential.Reveal()
	if credential == "" {
		return
	}
	switch a.config.AuthScheme {
	case "", authSchemeBearer:
		req.Header.Set("Authorization", "Bearer "+credential)
	default:
		req.Header.Set(a.config.AuthScheme, credential)
	}
}

// errorFromStatus maps non-2xx responses onto the error taxonomy:
// 401/403 and 400/422 are fatal for this provider, 429 and 5xx transient.
func (a *Adapter) errorFromStatus(status int, body []byte) error {
	message := fmt.Sprintf("provider returned status %d", status)
	if len(body) > 0 && len(body) <= 512 {
		message = fmt.Sprintf("%s: %s", message, body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.NewProviderError(a.Name(), "AUTH_ERROR", message, status, false, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return providers.NewProviderError(a.Name(), "MALFORMED_REQUEST", message, status, false, nil)
	case status == http.StatusTooManyRequests:
		return providers.NewProviderError(a.Name(), "RATE_LIMITED", message, status, true, nil)
	default:
		return providers.NewProviderError(a.Name(), "HTTP_ERROR", message, status, true, nil)
	}
}
