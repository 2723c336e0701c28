package routing

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/classifier"
	"github.com/upb/llm-router/services/ledger"
	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/services/ratelimit"
)

// Router builds, per request, the ordered candidate list (fallback chain)
// from the registry filtered by budget, rate-limit and availability state.
// The chain is recomputed on every dispatch and never cached: ranking is a
// function of mutable state and must reflect the latest observations.
type Router struct {
	registry *providers.Registry
	ledger   *ledger.Ledger
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
}

// New creates a Router.
func New(registry *providers.Registry, l *ledger.Ledger, limiter *ratelimit.Limiter, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		ledger:   l,
		limiter:  limiter,
		logger:   logger,
	}
}

// candidate is one provider that passed filtering, with its ranking
// inputs captured at routing time.
type candidate struct {
	id       string
	score    float64
	cost     float64
	priority int
}

// Route returns the ordered candidate provider ids for the request.
// An explicit provider override is a hard requirement: it goes first when
// it passes filtering and fails the request fast when it does not.
func (r *Router) Route(ctx context.Context, req *providers.GenerationRequest, cls classifier.Classification) ([]string, error) {
	matches := r.registry.Find(cls.Category, req.MaxTokens)

	var candidates []candidate
	overridePassed := false
	for _, reg := range matches {
		cfg := reg.Config
		if !r.passesFilters(ctx, reg, req) {
			continue
		}
		if cfg.ID == req.Provider {
			overridePassed = true
			continue // placed first below, outside the ranking
		}
		candidates = append(candidates, candidate{
			id:       cfg.ID,
			score:    reg.Reliability.Score(),
			cost:     cfg.EstimatedCost(req.MaxTokens),
			priority: cfg.Priority,
		})
	}

	if req.Provider != "" && !overridePassed {
		r.logger.Warn("override provider failed filtering",
			zap.String("request_id", req.ID.String()),
			zap.String("provider", req.Provider))
		return nil, services.NewDomainError(services.ErrorTypeProviderUnavailable,
			"override provider failed filtering", nil).
			WithDetail("provider", req.Provider)
	}

	// Rank: reliability desc, cost asc, configured priority, then
	// insertion order via the stable sort.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].cost != candidates[j].cost {
			return candidates[i].cost < candidates[j].cost
		}
		return candidates[i].priority < candidates[j].priority
	})

	ordered := make([]string, 0, len(candidates)+1)
	if overridePassed {
		ordered = append(ordered, req.Provider)
	}
	for _, c := range candidates {
		ordered = append(ordered, c.id)
	}

	if len(ordered) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeNoProvider,
			"no provider passed filtering", nil).
			WithDetail("capability", cls.Category).
			WithDetail("token_ceiling", req.MaxTokens)
	}

	r.logger.Debug("candidates ranked",
		zap.String("request_id", req.ID.String()),
		zap.String("capability", cls.Category),
		zap.Strings("candidates", ordered))

	return ordered, nil
}

// passesFilters applies the budget, rate-limit and availability filters.
// Capability and context-window filtering already happened in Find.
func (r *Router) passesFilters(ctx context.Context, reg *providers.Registered, req *providers.GenerationRequest) bool {
	cfg := reg.Config

	if !r.ledger.Reserve(cfg.ID, cfg.EstimatedCost(req.MaxTokens)) {
		r.logger.Debug("provider excluded by budget", zap.String("provider", cfg.ID))
		return false
	}
	if !r.limiter.Allow(cfg.ID, cfg.RequestsPerMinute, cfg.TokensPerMinute) {
		r.logger.Debug("provider excluded by rate limit", zap.String("provider", cfg.ID))
		return false
	}
	if !reg.Provider.Available(ctx) {
		r.logger.Debug("provider unavailable", zap.String("provider", cfg.ID))
		return false
	}
	return true
}
