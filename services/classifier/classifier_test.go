package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/upb/llm-router/services/providers"
)

func TestClassifier_Deterministic(t *testing.T) {
	c := New()
	req := &providers.GenerationRequest{
		Prompt:          "Design a migration strategy for our kubernetes cluster, step by step",
		NeedsCreativity: false,
	}

	first := c.Classify(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(req))
	}
}

func TestClassifier_CategoryInference(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"translation", "Translate this paragraph into German", providers.CapabilityTranslation},
		{"planning", "Create a roadmap for the data platform", providers.CapabilityComplexPlanning},
		{"generation", "Write a function that parses ISO timestamps", providers.CapabilityGeneration},
		{"creative", "Write a short story about a lighthouse keeper", providers.CapabilityCreative},
		{"analysis", "Compare the two vendor proposals", providers.CapabilityAnalysis},
		{"simple fallback", "What is the capital of France?", providers.CapabilitySimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := c.Classify(&providers.GenerationRequest{Prompt: tt.prompt})
			assert.Equal(t, tt.want, cls.Category)
		})
	}

	t.Run("translation wins over planning markers", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{
			Prompt: "Translate this strategy document into French",
		})
		assert.Equal(t, providers.CapabilityTranslation, cls.Category)
	})

	t.Run("declared category kept as-is", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{
			Prompt:       "Translate this paragraph",
			TaskCategory: providers.CapabilitySimple,
		})
		assert.Equal(t, providers.CapabilitySimple, cls.Category)
	})

	t.Run("creativity hint forces creative", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{
			Prompt:          "Name this product",
			NeedsCreativity: true,
		})
		assert.Equal(t, providers.CapabilityCreative, cls.Category)
	})
}

func TestClassifier_Score(t *testing.T) {
	c := New()

	t.Run("bounded to unit interval", func(t *testing.T) {
		heavy := &providers.GenerationRequest{
			Prompt: strings.Repeat("design a distributed cryptographic protocol step by step with a creative story ", 50),
		}
		cls := c.Classify(heavy)
		assert.LessOrEqual(t, cls.Score, 1.0)
		assert.GreaterOrEqual(t, cls.Score, 0.0)
	})

	t.Run("trivial prompt scores low", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{Prompt: "hi"})
		assert.Less(t, cls.Score, 0.2)
	})

	t.Run("reasoning markers raise the score", func(t *testing.T) {
		plain := c.Classify(&providers.GenerationRequest{Prompt: "Tell me about dogs", TaskCategory: providers.CapabilitySimple})
		reasoned := c.Classify(&providers.GenerationRequest{Prompt: "Tell me about dogs step by step", TaskCategory: providers.CapabilitySimple})
		assert.Greater(t, reasoned.Score, plain.Score)
	})

	t.Run("time sensitivity lowers the score", func(t *testing.T) {
		slow := c.Classify(&providers.GenerationRequest{Prompt: "Summarize this meeting", TaskCategory: providers.CapabilitySimple})
		fast := c.Classify(&providers.GenerationRequest{Prompt: "Summarize this meeting", TaskCategory: providers.CapabilitySimple, TimeSensitive: true})
		assert.Less(t, fast.Score, slow.Score)
	})

	t.Run("complex planning floor", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{
			Prompt:       "x",
			TaskCategory: providers.CapabilityComplexPlanning,
		})
		assert.GreaterOrEqual(t, cls.Score, 0.6)
	})

	t.Run("analysis floor", func(t *testing.T) {
		cls := c.Classify(&providers.GenerationRequest{
			Prompt:       "x",
			TaskCategory: providers.CapabilityAnalysis,
		})
		assert.GreaterOrEqual(t, cls.Score, 0.4)
	})

	t.Run("length contribution saturates", func(t *testing.T) {
		at2k := c.Classify(&providers.GenerationRequest{Prompt: strings.Repeat("a", 2000), TaskCategory: providers.CapabilitySimple})
		at10k := c.Classify(&providers.GenerationRequest{Prompt: strings.Repeat("a", 10000), TaskCategory: providers.CapabilitySimple})
		assert.Equal(t, at2k.Score, at10k.Score)
	})
}
