// Package openai adapts the OpenAI chat completions API to the Provider
// interface.
package openai

import (
	"context"
	"errors"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/upb/llm-router/services/providers"
)

// Adapter is a Provider over the OpenAI API.
type Adapter struct {
	config providers.Config
	client *goopenai.Client
}

// New creates an Adapter from the provider config. The endpoint, when
// set, overrides the default API base URL (for proxies and compatible
// servers).
func New(cfg providers.Config) *Adapter {
	clientCfg := goopenai.DefaultConfig(cfg.Credential.Reveal())
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	return &Adapter{
		config: cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
	}
}

// Name returns the provider id
func (a *Adapter) Name() string {
	return a.config.ID
}

// Available always reports true; unreachability surfaces as a transient
// attempt failure.
func (a *Adapter) Available(_ context.Context) bool {
	return true
}

// Generate performs one chat completion attempt.
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = a.config.DefaultModel()
	}

	messages := []goopenai.ChatCompletionMessage{}
	for key, value := range req.Context {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: key + ": " + value,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, a.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), "EMPTY_RESPONSE", "provider returned no choices", 0, true, nil)
	}

	return &providers.GenerationResult{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}, nil
}

// classifyError maps API errors onto the taxonomy: auth and bad-request
// failures are fatal for this provider, everything else transient.
func (a *Adapter) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return providers.NewProviderError(a.Name(), "AUTH_ERROR", apiErr.Message, apiErr.HTTPStatusCode, false, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return providers.NewProviderError(a.Name(), "MALFORMED_REQUEST", apiErr.Message, apiErr.HTTPStatusCode, false, err)
		case http.StatusTooManyRequests:
			return providers.NewProviderError(a.Name(), "RATE_LIMITED", apiErr.Message, apiErr.HTTPStatusCode, true, err)
		default:
			return providers.NewProviderError(a.Name(), "API_ERROR", apiErr.Message, apiErr.HTTPStatusCode, true, err)
		}
	}

	return providers.NewProviderError(a.Name(), "HTTP_ERROR", "transport error", 0, true, err)
}
