package execution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/cache"
	"github.com/upb/llm-router/services/ledger"
	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/services/ratelimit"
)

// Defaults applied when a provider declares no retry policy of its own.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 30 * time.Second
	DefaultBackoffBase    = time.Second
)

// AttemptFailure records why one candidate was abandoned, for the
// aggregated AllProvidersFailed diagnostics.
type AttemptFailure struct {
	Provider string             `json:"provider"`
	Reason   string             `json:"reason"`
	Type     services.ErrorType `json:"type"`
	Attempts int                `json:"attempts"`
}

// Config holds engine-level execution defaults.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
}

// Engine attempts candidates in the Router's declared order, applying
// per-attempt timeouts and per-provider retry with backoff. It is the
// only component that performs outbound calls, and the only writer of the
// Cost Ledger and reliability scores.
type Engine struct {
	registry *providers.Registry
	ledger   *ledger.Ledger
	limiter  *ratelimit.Limiter
	cache    cache.Store
	config   Config
	logger   *zap.Logger

	// sleep is replaceable in tests to skip real backoff delays
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Engine.
func New(registry *providers.Registry, l *ledger.Ledger, limiter *ratelimit.Limiter, store cache.Store, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	return &Engine{
		registry: registry,
		ledger:   l,
		limiter:  limiter,
		cache:    store,
		config:   cfg,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Execute tries the candidates strictly in order and returns the first
// success. Candidate order is fixed before the first attempt and never
// recomputed mid-flight.
func (e *Engine) Execute(ctx context.Context, req *providers.GenerationRequest, candidates []string) (*providers.Response, error) {
	var failures []AttemptFailure

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reg, err := e.registry.Get(id)
		if err != nil {
			// Candidates come from the registry moments earlier and
			// registrations are never deleted; a miss is a contract
			// violation.
			return nil, services.NewDomainError(services.ErrorTypeInternal,
				"candidate provider missing from registry", err)
		}

		resp, failure, err := e.attemptProvider(ctx, reg, req)
		if err != nil {
			return nil, err // caller cancellation
		}
		if resp != nil {
			return resp, nil
		}
		failures = append(failures, *failure)
	}

	e.logger.Warn("all candidates exhausted",
		zap.String("request_id", req.ID.String()),
		zap.Int("candidates", len(candidates)))

	return nil, services.NewDomainError(services.ErrorTypeAllProvidersFailed,
		"all providers failed", nil).
		WithDetail("failures", failures)
}

// attemptProvider runs the per-provider retry loop. It returns a response
// on success, a failure record when the provider is abandoned, or an error
// only for caller cancellation.
func (e *Engine) attemptProvider(ctx context.Context, reg *providers.Registered, req *providers.GenerationRequest) (*providers.Response, *AttemptFailure, error) {
	cfg := reg.Config

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.config.MaxAttempts
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = e.config.AttemptTimeout
	}

	var lastErr error
	attemptsRun := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, e.backoffDelay(cfg.Backoff, attempt)); err != nil {
				return nil, nil, err
			}
		}

		result, latency, err := e.invoke(ctx, reg.Provider, req, timeout)

		// Caller cancellation aborts without touching reliability or the
		// ledger; the aborted attempt produced nothing billable.
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		attemptsRun++
		reg.Reliability.Record(err == nil, latency)

		if err == nil {
			return e.success(ctx, reg, req, result, latency), nil, nil
		}
		lastErr = err

		e.logger.Debug("attempt failed",
			zap.String("request_id", req.ID.String()),
			zap.String("provider", cfg.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if !retryable(err) {
			// Fatal for this provider: skip remaining retries
			break
		}
	}

	return nil, &AttemptFailure{
		Provider: cfg.ID,
		Reason:   lastErr.Error(),
		Type:     classify(lastErr),
		Attempts: attemptsRun,
	}, nil
}

// invoke performs one bounded attempt.
func (e *Engine) invoke(ctx context.Context, p providers.Provider, req *providers.GenerationRequest, timeout time.Duration) (*providers.GenerationResult, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := p.Generate(attemptCtx, req)
	latency := time.Since(start)

	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = providers.NewProviderError(p.Name(), "TIMEOUT", "attempt timed out", 0, true, err)
	}
	return result, latency, err
}

// success finalizes a winning attempt: exact cost, ledger commit, rate
// window record, and cache write-back for cacheable requests.
func (e *Engine) success(ctx context.Context, reg *providers.Registered, req *providers.GenerationRequest, result *providers.GenerationResult, latency time.Duration) *providers.Response {
	cfg := reg.Config
	cost := cfg.Cost(result.InputTokens, result.OutputTokens)

	e.ledger.Commit(ctx, cfg.ID, cost)
	e.limiter.Record(cfg.ID, result.InputTokens+result.OutputTokens)

	resp := &providers.Response{
		ID:           uuid.New(),
		Content:      result.Content,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Provider:     cfg.ID,
		Model:        result.Model,
		Cost:         cost,
		Duration:     latency,
		CreatedAt:    time.Now(),
	}

	if req.Cacheable() {
		e.cache.Put(ctx, cache.KeyFor(req), resp)
	}

	e.logger.Info("request served",
		zap.String("request_id", req.ID.String()),
		zap.String("provider", cfg.ID),
		zap.Int("input_tokens", result.InputTokens),
		zap.Int("output_tokens", result.OutputTokens),
		zap.Float64("cost", cost),
		zap.Duration("latency", latency))

	return resp
}

// backoffDelay computes the wait before the given attempt (attempt >= 2).
func (e *Engine) backoffDelay(policy providers.BackoffPolicy, attempt int) time.Duration {
	base := e.config.BackoffBase
	switch policy {
	case providers.BackoffExponential:
		return base << (attempt - 2)
	default:
		return base * time.Duration(attempt-1)
	}
}

// retryable reports whether the same provider may be retried. Timeouts,
// rate limits and transport errors are transient; authentication and
// malformed-request errors are fatal for the provider.
func retryable(err error) bool {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	// Unclassified errors are treated as transient transport failures
	return true
}

// classify maps a terminal provider error onto the domain taxonomy.
func classify(err error) services.ErrorType {
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		return services.ErrorTypeTransientNetwork
	}
	switch {
	case provErr.Code == "TIMEOUT":
		return services.ErrorTypeTimeout
	case provErr.StatusCode == 429:
		return services.ErrorTypeRateLimited
	case provErr.StatusCode == 401 || provErr.StatusCode == 403:
		return services.ErrorTypeAuthentication
	case provErr.StatusCode == 400 || provErr.StatusCode == 422:
		return services.ErrorTypeMalformedRequest
	default:
		return services.ErrorTypeTransientNetwork
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
