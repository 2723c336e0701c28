package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Capability tags a provider declares support for. A request is routed only
// to providers whose tag set includes its classified capability.
const (
	CapabilitySimple          = "simple"
	CapabilityComplexPlanning = "complex_planning"
	CapabilityCreative        = "creative"
	CapabilityAnalysis        = "analysis"
	CapabilityTranslation     = "translation"
	CapabilityGeneration      = "generation"
)

// BackoffPolicy controls how the retry delay grows between attempts
// against the same provider.
type BackoffPolicy string

const (
	BackoffLinear      BackoffPolicy = "linear"
	BackoffExponential BackoffPolicy = "exponential"
)

// Secret is an opaque credential reference. It redacts itself when printed
// or logged so provider credentials never reach log output.
type Secret string

// String implements fmt.Stringer
func (Secret) String() string { return "[redacted]" }

// MarshalJSON redacts the secret in JSON output
func (Secret) MarshalJSON() ([]byte, error) { return []byte(`"[redacted]"`), nil }

// UnmarshalJSON accepts the raw credential value
func (s *Secret) UnmarshalJSON(b []byte) error {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		*s = Secret(b[1 : len(b)-1])
	}
	return nil
}

// Reveal returns the raw credential for use in outbound requests
func (s Secret) Reveal() string { return string(s) }

// Config holds the static metadata for a registered provider. Immutable
// once registered; only the associated reliability record mutates.
type Config struct {
	// ID uniquely identifies the provider in the registry
	ID string `json:"id" validate:"required"`

	// Type selects the adapter: "http", "openai", or "local"
	Type string `json:"type,omitempty" validate:"omitempty,oneof=http openai local"`

	// Endpoint is the base URL the provider is invoked at
	Endpoint string `json:"endpoint" validate:"omitempty,url"`

	// Method is the HTTP method for generation calls (default POST)
	Method string `json:"method,omitempty"`

	// AuthScheme is "bearer" (Authorization: Bearer) or a header name
	AuthScheme string `json:"auth_scheme,omitempty"`

	// Credential is the opaque secret attached per AuthScheme, never logged
	Credential Secret `json:"credential,omitempty"`

	// Models lists supported model identifiers in preference order
	Models []string `json:"models" validate:"required,min=1"`

	// Per-token prices, expressed per 1K tokens as the usual pricing tables are
	InputPricePer1K  float64 `json:"input_price_per_1k" validate:"gte=0"`
	OutputPricePer1K float64 `json:"output_price_per_1k" validate:"gte=0"`

	// MaxContextTokens is the provider's context window
	MaxContextTokens int `json:"max_context_tokens" validate:"gt=0"`

	// Capabilities is the set of declared capability tags
	Capabilities []string `json:"capabilities" validate:"required,min=1,dive,oneof=simple complex_planning creative analysis translation generation"`

	// Rate limits; zero means unlimited
	RequestsPerMinute int `json:"requests_per_minute,omitempty" validate:"gte=0"`
	TokensPerMinute   int `json:"tokens_per_minute,omitempty" validate:"gte=0"`

	// BudgetCap is the hard ceiling on cumulative spend; zero means uncapped
	BudgetCap float64 `json:"budget_cap,omitempty" validate:"gte=0"`

	// Retry policy per attempt against this provider
	MaxAttempts    int           `json:"max_attempts,omitempty" validate:"gte=0"`
	AttemptTimeout time.Duration `json:"attempt_timeout,omitempty"`
	Backoff        BackoffPolicy `json:"backoff,omitempty" validate:"omitempty,oneof=linear exponential"`

	// Priority is the configured fallback-chain position, lower first
	Priority int `json:"priority,omitempty"`
}

// HasCapability reports whether the capability tag is declared.
func (c Config) HasCapability(capability string) bool {
	for _, tag := range c.Capabilities {
		if tag == capability {
			return true
		}
	}
	return false
}

// DefaultModel returns the first configured model identifier.
func (c Config) DefaultModel() string {
	if len(c.Models) == 0 {
		return ""
	}
	return c.Models[0]
}

// SupportsModel reports whether the model identifier is configured.
func (c Config) SupportsModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Cost computes the exact cost of a completed call:
// inputTokens × input price + outputTokens × output price.
func (c Config) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPricePer1K/1000 +
		float64(outputTokens)*c.OutputPricePer1K/1000
}

// EstimatedCost is the conservative upper bound used for budget filtering:
// the request's token ceiling priced entirely at the output rate.
func (c Config) EstimatedCost(tokenCeiling int) float64 {
	return float64(tokenCeiling) * c.OutputPricePer1K / 1000
}

// GenerationRequest represents a single text-generation request.
type GenerationRequest struct {
	// ID is generated when the request enters the engine
	ID uuid.UUID `json:"id"`

	// Prompt is the text to complete
	Prompt string `json:"prompt"`

	// TaskCategory is the declared category; inferred when empty
	TaskCategory string `json:"task_category,omitempty"`

	// Context is optional structured context forwarded to the provider
	Context map[string]string `json:"context,omitempty"`

	// Provider pins the request to one provider id; a hard requirement
	Provider string `json:"provider,omitempty"`

	// Model overrides the provider's default model
	Model string `json:"model,omitempty"`

	// MaxTokens is the token ceiling for the response
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is the sampling temperature
	Temperature float64 `json:"temperature,omitempty"`

	// Deterministic declares the request deterministic regardless of temperature
	Deterministic bool `json:"deterministic,omitempty"`

	// NondeterministicContext marks caller-supplied context that varies
	// between otherwise identical submissions, which disables caching
	NondeterministicContext bool `json:"nondeterministic_context,omitempty"`

	// Classifier hints
	NeedsCreativity bool `json:"needs_creativity,omitempty"`
	TimeSensitive   bool `json:"time_sensitive,omitempty"`
}

// Cacheable reports whether the request's determinism guarantees make
// caching its response safe.
func (r *GenerationRequest) Cacheable() bool {
	if r.NondeterministicContext {
		return false
	}
	return r.Temperature == 0 || r.Deterministic
}

// GenerationResult is what a provider adapter returns for one attempt.
type GenerationResult struct {
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Response is the engine's final answer for a request. Immutable once
// produced.
type Response struct {
	ID           uuid.UUID     `json:"id"`
	Content      string        `json:"content"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Cost         float64       `json:"cost"`
	Duration     time.Duration `json:"duration"`
	Cached       bool          `json:"cached"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Provider is a backend capable of serving a generation request, local or
// remote.
type Provider interface {
	// Name returns the provider id
	Name() string

	// Generate performs one generation attempt
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)

	// Available reports whether the provider can currently be reached
	Available(ctx context.Context) bool
}

// ProviderError represents an error from a provider attempt
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates whether the same provider may be retried;
	// authentication and malformed-request errors are not
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable against the same provider
func IsRetryable(err error) bool {
	if provErr, ok := err.(*ProviderError); ok {
		return provErr.Retryable
	}
	return false
}
