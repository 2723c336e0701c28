// Package localruntime presents a locally hosted inference process as a
// standard provider. The adapter never manages the process lifecycle; an
// unreachable endpoint makes the provider report itself unavailable.
package localruntime

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-router/services/providers"
	"github.com/upb/llm-router/services/providers/httpadapter"
)

// healthCheckInterval is how long a probe result stays trusted before the
// endpoint is probed again.
const healthCheckInterval = 30 * time.Second

// Adapter wraps a local inference endpoint behind the Provider interface,
// adding a cached health probe.
type Adapter struct {
	config providers.Config
	inner  *httpadapter.Adapter
	client *http.Client
	logger *zap.Logger

	mu        sync.Mutex
	healthy   bool
	checkedAt time.Time
}

// New creates an Adapter for an already-running local inference process.
func New(cfg providers.Config, logger *zap.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		inner:  httpadapter.New(cfg),
		client: &http.Client{Timeout: 2 * time.Second},
		logger: logger,
	}
}

// Name returns the provider id
func (a *Adapter) Name() string {
	return a.config.ID
}

// Generate forwards to the local endpoint.
func (a *Adapter) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResult, error) {
	return a.inner.Generate(ctx, req)
}

// Available probes the local endpoint on first use and then at most once
// per interval, reporting the cached result in between. An unreachable
// process is reported as unavailable rather than started inline.
func (a *Adapter) Available(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.checkedAt.IsZero() && time.Since(a.checkedAt) < healthCheckInterval {
		return a.healthy
	}

	a.healthy = a.probe(ctx)
	a.checkedAt = time.Now()
	if !a.healthy {
		a.logger.Warn("local runtime unreachable",
			zap.String("provider", a.config.ID),
			zap.String("endpoint", a.config.Endpoint))
	}
	return a.healthy
}

func (a *Adapter) probe(ctx context.Context) bool {
	// Probe scheme://host/health regardless of the generate path
	endpoint, err := url.Parse(a.config.Endpoint)
	if err != nil {
		return false
	}
	endpoint.Path = "/health"
	endpoint.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
