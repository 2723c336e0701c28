package classifier

import (
	"strings"

	"github.com/upb/llm-router/services/providers"
)

// Classification is the advisory routing input derived from a request:
// one task category and a complexity score in [0,1]. It never rejects or
// approves a request by itself.
type Classification struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Marker word lists, matched case-insensitively against the prompt.
// Classification must stay fully deterministic: identical inputs always
// produce the identical category and score.
var (
	reasoningMarkers = []string{
		"step by step", "step-by-step", "plan", "roadmap", "strategy",
		"architecture", "design a", "prove", "derive", "algorithm",
		"multi-step", "break down", "reasoning",
	}
	creativeMarkers = []string{
		"story", "poem", "creative", "imagine", "fiction", "lyrics",
		"brainstorm", "slogan",
	}
	analysisMarkers = []string{
		"analyze", "analyse", "compare", "evaluate", "assess",
		"pros and cons", "trade-off", "tradeoff", "review",
	}
	translationMarkers = []string{
		"translate", "translation",
	}
	generationMarkers = []string{
		"write code", "implement", "generate a function", "refactor",
		"unit test", "write a function", "write a class", "sql query",
	}
	domainMarkers = []string{
		"regulatory", "compliance", "medical", "legal", "financial",
		"cryptograph", "kubernetes", "distributed", "protocol",
		"quantum", "genomic",
	}
)

// Classifier maps a request to a task category and complexity score.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify scores the request. A declared task category is kept as-is;
// otherwise one is inferred from prompt markers.
func (c *Classifier) Classify(req *providers.GenerationRequest) Classification {
	prompt := strings.ToLower(req.Prompt)

	category := req.TaskCategory
	if category == "" {
		category = inferCategory(prompt, req.NeedsCreativity)
	}

	score := 0.1

	// Prompt length, saturating at 2000 characters
	length := float64(len(req.Prompt))
	if length > 2000 {
		length = 2000
	}
	score += 0.3 * length / 2000

	if containsAny(prompt, reasoningMarkers) {
		score += 0.25
	}
	if req.NeedsCreativity || containsAny(prompt, creativeMarkers) {
		score += 0.15
	}
	if containsAny(prompt, domainMarkers) {
		score += 0.15
	}
	// Time-sensitive requests favour cheap, fast handling
	if req.TimeSensitive {
		score -= 0.1
	}

	switch category {
	case providers.CapabilityComplexPlanning:
		if score < 0.6 {
			score = 0.6
		}
	case providers.CapabilityAnalysis:
		if score < 0.4 {
			score = 0.4
		}
	}

	return Classification{Category: category, Score: clamp(score)}
}

func inferCategory(prompt string, needsCreativity bool) string {
	switch {
	case containsAny(prompt, translationMarkers):
		return providers.CapabilityTranslation
	case containsAny(prompt, reasoningMarkers):
		return providers.CapabilityComplexPlanning
	case containsAny(prompt, generationMarkers):
		return providers.CapabilityGeneration
	case needsCreativity || containsAny(prompt, creativeMarkers):
		return providers.CapabilityCreative
	case containsAny(prompt, analysisMarkers):
		return providers.CapabilityAnalysis
	default:
		return providers.CapabilitySimple
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
