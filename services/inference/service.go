package inference

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services"
	"github.com/upb/llm-router/services/cache"
	"github.com/upb/llm-router/services/classifier"
	"github.com/upb/llm-router/services/execution"
	"github.com/upb/llm-router/services/ledger"
	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/services/providers/httpadapter"
	"github.com/upb/llm-router/services/providers/localruntime"
	"github.com/upb/llm-router/services/providers/openai"
	"github.com/upb/llm-router/services/ratelimit"
	"github.com/upb/llm-router/services/routing"
)

// Config holds engine-instance settings.
type Config struct {
	// DefaultMaxTokens is applied when a request carries no token ceiling
	DefaultMaxTokens int

	// Execution defaults; provider configs override per provider
	Execution execution.Config
}

// Service is the request-routing engine instance. It owns the registry,
// ledger, cache and limiter; multiple independent instances can coexist
// in one process.
type Service struct {
	config     Config
	registry   *providers.Registry
	classifier *classifier.Classifier
	router     *routing.Router
	executor   *execution.Engine
	cache      cache.Store
	ledger     *ledger.Ledger
	limiter    *ratelimit.Limiter
	logger     *zap.Logger

	subMu       sync.Mutex
	subscribers []chan Event
}

// Option configures a Service.
type Option func(*options)

type options struct {
	cacheStore  cache.Store
	ledgerStore ledger.Store
}

// WithCacheStore swaps the response-cache backend (e.g. Redis).
func WithCacheStore(store cache.Store) Option {
	return func(o *options) { o.cacheStore = store }
}

// WithLedgerStore attaches a durable spend mirror.
func WithLedgerStore(store ledger.Store) Option {
	return func(o *options) { o.ledgerStore = store }
}

// New constructs an engine instance with injected configuration. There is
// no ambient singleton; the composing process owns the instance.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 1024
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheStore == nil {
		o.cacheStore = cache.NewMemoryStore(1024, cache.DefaultTTL)
	}

	var ledgerOpts []ledger.Option
	if o.ledgerStore != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithStore(o.ledgerStore))
	}

	registry := providers.NewRegistry(logger)
	l := ledger.New(logger, ledgerOpts...)
	limiter := ratelimit.New(logger)

	return &Service{
		config:     cfg,
		registry:   registry,
		classifier: classifier.New(),
		router:     routing.New(registry, l, limiter, logger),
		executor:   execution.New(registry, l, limiter, o.cacheStore, cfg.Execution, logger),
		cache:      o.cacheStore,
		ledger:     l,
		limiter:    limiter,
		logger:     logger,
	}
}

// Restore loads persisted ledger totals, when a store is attached.
func (s *Service) Restore(ctx context.Context) error {
	return s.ledger.Restore(ctx)
}

// Submit runs the full pipeline: cache lookup, classification, routing,
// execution. It returns either a Response or a single terminal error.
func (s *Service) Submit(ctx context.Context, req *providers.GenerationRequest) (*providers.Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, services.NewDomainError(services.ErrorTypeMalformedRequest,
			"prompt cannot be empty", nil)
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = s.config.DefaultMaxTokens
	}

	if req.Cacheable() {
		if cached, ok := s.cache.Get(ctx, cache.KeyFor(req)); ok {
			hit := *cached
			hit.Cached = true
			s.publish(Event{Stage: StageCacheHit, RequestID: req.ID, Provider: hit.Provider})
			s.logger.Debug("cache hit", zap.String("request_id", req.ID.String()))
			return &hit, nil
		}
	}

	cls := s.classifier.Classify(req)
	s.publish(Event{Stage: StageClassified, RequestID: req.ID, Category: cls.Category})

	candidates, err := s.router.Route(ctx, req, cls)
	if err != nil {
		s.publish(Event{Stage: StageFailed, RequestID: req.ID, Error: err.Error()})
		return nil, err
	}
	s.publish(Event{Stage: StageRouted, RequestID: req.ID, Category: cls.Category, Candidates: candidates})

	resp, err := s.executor.Execute(ctx, req, candidates)
	if err != nil {
		s.publish(Event{Stage: StageFailed, RequestID: req.ID, Error: err.Error()})
		return nil, err
	}

	s.publish(Event{Stage: StageCompleted, RequestID: req.ID, Provider: resp.Provider})
	return resp, nil
}

// RegisterProvider validates the config, builds the matching adapter and
// registers it. Re-registering an id replaces the previous definition.
func (s *Service) RegisterProvider(cfg providers.Config) error {
	provider, err := s.buildAdapter(cfg)
	if err != nil {
		return services.NewDomainError(services.ErrorTypeInvalidConfig, err.Error(), err)
	}
	return s.RegisterProviderWith(cfg, provider)
}

// RegisterProviderWith registers a provider with a caller-supplied
// adapter, for custom backends and tests.
func (s *Service) RegisterProviderWith(cfg providers.Config, provider providers.Provider) error {
	if err := s.registry.Register(cfg, provider); err != nil {
		return services.NewDomainError(services.ErrorTypeInvalidConfig, err.Error(), err)
	}
	s.ledger.SetCap(cfg.ID, cfg.BudgetCap)
	return nil
}

func (s *Service) buildAdapter(cfg providers.Config) (providers.Provider, error) {
	switch cfg.Type {
	case "openai":
		return openai.New(cfg), nil
	case "local":
		return localruntime.New(cfg, s.logger), nil
	case "", "http":
		return httpadapter.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// Providers returns read-only metadata for all registered providers.
func (s *Service) Providers() []providers.Info {
	return s.registry.List()
}

// CostSummary returns total and per-provider spend.
func (s *Service) CostSummary() ledger.Summary {
	return s.ledger.Summary()
}

// Subscribe returns a channel of progress events. Slow subscribers drop
// events rather than stalling the pipeline.
func (s *Service) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Service) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
