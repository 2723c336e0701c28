package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/upb/llm-router/config"
	"github.com/upb/llm-router/services/cache"
	"github.com/upb/llm-router/services/execution"
	"github.com/upb/llm-router/services/inference"
	ledgerpg "github.com/upb/llm-router/services/ledger/postgres"
	"github.com/upb/llm-router/services/providers"
)

// cacheSweepInterval is how often the in-memory cache evicts expired
// entries in the background.
const cacheSweepInterval = time.Minute

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Service *inference.Service

	db         *sql.DB
	redisStore *cache.RedisStore
	sweepStop  chan struct{}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	opts, err := deps.initStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps.Service = inference.New(inference.Config{
		DefaultMaxTokens: cfg.Engine.DefaultMaxTokens,
		Execution: execution.Config{
			MaxAttempts:    cfg.Engine.MaxAttempts,
			AttemptTimeout: cfg.Engine.AttemptTimeout,
			BackoffBase:    cfg.Engine.BackoffBase,
		},
	}, logger, opts...)

	if err := deps.Service.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore spend counters: %w", err)
	}

	if err := deps.seedProviders(cfg); err != nil {
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initStores sets up the optional durable backends. Both default to
// in-memory when their URLs are unset.
func (d *Dependencies) initStores(ctx context.Context, cfg *config.Config) ([]inference.Option, error) {
	var opts []inference.Option

	if cfg.Cache.RedisURL != "" {
		store, err := cache.NewRedisStore(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.redisStore = store
		opts = append(opts, inference.WithCacheStore(store))
		d.Logger.Info("response cache backed by redis")
	} else {
		store := cache.NewMemoryStore(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		d.sweepStop = make(chan struct{})
		go store.StartCleanupWorker(cacheSweepInterval, d.sweepStop)
		opts = append(opts, inference.WithCacheStore(store))
	}

	if cfg.Ledger.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.Ledger.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		d.db = db
		opts = append(opts, inference.WithLedgerStore(ledgerpg.NewStore(db)))
		d.Logger.Info("spend counters mirrored to postgres")
	}

	return opts, nil
}

// seedProviders registers providers configured through the environment.
// Further providers register at runtime through the admin API.
func (d *Dependencies) seedProviders(cfg *config.Config) error {
	if cfg.Providers.OpenAI.APIKey != "" {
		providerCfg := providers.Config{
			ID:               "openai",
			Type:             "openai",
			Endpoint:         cfg.Providers.OpenAI.BaseURL,
			Credential:       providers.Secret(cfg.Providers.OpenAI.APIKey),
			Models:           []string{"gpt-4o", "gpt-4o-mini"},
			InputPricePer1K:  0.0025,
			OutputPricePer1K: 0.01,
			MaxContextTokens: 128000,
			Capabilities: []string{
				providers.CapabilitySimple,
				providers.CapabilityComplexPlanning,
				providers.CapabilityCreative,
				providers.CapabilityAnalysis,
				providers.CapabilityTranslation,
				providers.CapabilityGeneration,
			},
		}
		if err := d.Service.RegisterProvider(providerCfg); err != nil {
			return fmt.Errorf("failed to register openai provider: %w", err)
		}
		d.Logger.Info("registered OpenAI provider")
	}

	if len(d.Service.Providers()) == 0 {
		d.Logger.Warn("no LLM providers configured")
	}

	return nil
}

// Close stops the cache sweeper and releases database and cache
// connections.
func (d *Dependencies) Close() error {
	var firstErr error
	if d.sweepStop != nil {
		close(d.sweepStop)
	}
	if d.redisStore != nil {
		if err := d.redisStore.Close(); err != nil {
			firstErr = err
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
