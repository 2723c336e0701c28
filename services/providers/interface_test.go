package providers

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	secret := Secret("sk-live-12345")

	t.Run("stringer redacts", func(t *testing.T) {
		assert.Equal(t, "[redacted]", secret.String())
		assert.Equal(t, "[redacted]", fmt.Sprintf("%v", secret))
		assert.Equal(t, "[redacted]", fmt.Sprintf("%s", secret))
	})

	t.Run("json redacts", func(t *testing.T) {
		b, err := json.Marshal(struct {
			Credential Secret `json:"credential"`
		}{Credential: secret})
		require.NoError(t, err)
		assert.NotContains(t, string(b), "sk-live-12345")
		assert.Contains(t, string(b), "[redacted]")
	})

	t.Run("unmarshal keeps raw value", func(t *testing.T) {
		var s Secret
		require.NoError(t, json.Unmarshal([]byte(`"sk-raw"`), &s))
		assert.Equal(t, "sk-raw", s.Reveal())
	})

	t.Run("reveal returns raw value", func(t *testing.T) {
		assert.Equal(t, "sk-live-12345", secret.Reveal())
	})
}

func TestConfig_Cost(t *testing.T) {
	cfg := Config{InputPricePer1K: 0.5, OutputPricePer1K: 1.5}

	t.Run("exact arithmetic", func(t *testing.T) {
		// 2000 input at $0.5/1K + 1000 output at $1.5/1K
		assert.InDelta(t, 2.5, cfg.Cost(2000, 1000), 1e-9)
	})

	t.Run("zero tokens cost nothing", func(t *testing.T) {
		assert.Zero(t, cfg.Cost(0, 0))
	})

	t.Run("estimated cost prices ceiling at output rate", func(t *testing.T) {
		assert.InDelta(t, 1.5, cfg.EstimatedCost(1000), 1e-9)
	})
}

func TestConfig_Models(t *testing.T) {
	cfg := Config{Models: []string{"primary", "fallback"}}

	assert.Equal(t, "primary", cfg.DefaultModel())
	assert.True(t, cfg.SupportsModel("fallback"))
	assert.False(t, cfg.SupportsModel("unknown"))
	assert.Empty(t, Config{}.DefaultModel())
}

func TestGenerationRequest_Cacheable(t *testing.T) {
	tests := []struct {
		name string
		req  GenerationRequest
		want bool
	}{
		{"zero temperature", GenerationRequest{Temperature: 0}, true},
		{"nonzero temperature", GenerationRequest{Temperature: 0.7}, false},
		{"nonzero temperature but declared deterministic", GenerationRequest{Temperature: 0.7, Deterministic: true}, true},
		{"nondeterministic context wins over zero temperature", GenerationRequest{Temperature: 0, NondeterministicContext: true}, false},
		{"nondeterministic context wins over deterministic flag", GenerationRequest{Deterministic: true, NondeterministicContext: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Cacheable())
		})
	}
}

func TestProviderError(t *testing.T) {
	t.Run("retryable classification", func(t *testing.T) {
		transient := NewProviderError("alpha", "RATE_LIMITED", "slow down", 429, true, nil)
		fatal := NewProviderError("alpha", "AUTH_ERROR", "bad key", 401, false, nil)

		assert.True(t, IsRetryable(transient))
		assert.False(t, IsRetryable(fatal))
		assert.False(t, IsRetryable(fmt.Errorf("plain error")))
	})

	t.Run("wraps cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := NewProviderError("alpha", "HTTP_ERROR", "request failed", 0, true, cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})
}
