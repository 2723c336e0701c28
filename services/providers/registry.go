package providers

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrProviderNotFound is returned when a provider is not registered
var ErrProviderNotFound = errors.New("provider not found")

// Registered pairs a provider's static config with its adapter and its
// mutable reliability record.
type Registered struct {
	Config      Config
	Provider    Provider
	Reliability *Reliability
}

// Info is the read-only provider view exposed to admin callers. The
// credential is never included.
type Info struct {
	ID               string              `json:"id"`
	Type             string              `json:"type"`
	Endpoint         string              `json:"endpoint,omitempty"`
	Models           []string            `json:"models"`
	Capabilities     []string            `json:"capabilities"`
	InputPricePer1K  float64             `json:"input_price_per_1k"`
	OutputPricePer1K float64             `json:"output_price_per_1k"`
	MaxContextTokens int                 `json:"max_context_tokens"`
	BudgetCap        float64             `json:"budget_cap,omitempty"`
	Priority         int                 `json:"priority"`
	Reliability      ReliabilitySnapshot `json:"reliability"`
}

// Registry manages provider registrations. Registrations live for the
// process lifetime; re-registering an id replaces the config and adapter
// but keeps the accumulated reliability record, so configuration reloads
// are safe.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Registered
	order    []string // insertion order, final ranking tie-break
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRegistry creates a new provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries:  make(map[string]*Registered),
		validate: validator.New(),
		logger:   logger,
	}
}

// Register adds or replaces a provider by id. The config is validated;
// a bad definition is fatal at registration time.
func (r *Registry) Register(cfg Config, provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}
	if err := r.validate.Struct(cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[cfg.ID]; ok {
		// Swap in a fresh record rather than mutating the old one:
		// Find/Get hand out *Registered pointers that in-flight requests
		// keep reading, so a reload must leave them a consistent view.
		// The reliability history and insertion position carry over.
		r.entries[cfg.ID] = &Registered{
			Config:      cfg,
			Provider:    provider,
			Reliability: existing.Reliability,
		}
		r.logger.Info("provider replaced", zap.String("provider", cfg.ID))
		return nil
	}

	r.entries[cfg.ID] = &Registered{
		Config:      cfg,
		Provider:    provider,
		Reliability: NewReliability(),
	}
	r.order = append(r.order, cfg.ID)

	r.logger.Info("provider registered",
		zap.String("provider", cfg.ID),
		zap.Strings("capabilities", cfg.Capabilities),
		zap.Int("max_context_tokens", cfg.MaxContextTokens))

	return nil
}

// Get retrieves a registration by provider id
func (r *Registry) Get(id string) (*Registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return reg, nil
}

// Find returns, in insertion order, all providers whose capability tag set
// includes the requested capability and whose context window can hold the
// request's token ceiling.
func (r *Registry) Find(capability string, tokenCeiling int) []*Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Registered
	for _, id := range r.order {
		reg := r.entries[id]
		if !reg.Config.HasCapability(capability) {
			continue
		}
		if reg.Config.MaxContextTokens < tokenCeiling {
			continue
		}
		matches = append(matches, reg)
	}
	return matches
}

// List returns provider metadata for all registrations, insertion order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		reg := r.entries[id]
		infos = append(infos, Info{
			ID:               reg.Config.ID,
			Type:             reg.Config.Type,
			Endpoint:         reg.Config.Endpoint,
			Models:           reg.Config.Models,
			Capabilities:     reg.Config.Capabilities,
			InputPricePer1K:  reg.Config.InputPricePer1K,
			OutputPricePer1K: reg.Config.OutputPricePer1K,
			MaxContextTokens: reg.Config.MaxContextTokens,
			BudgetCap:        reg.Config.BudgetCap,
			Priority:         reg.Config.Priority,
			Reliability:      reg.Reliability.Snapshot(),
		})
	}
	return infos
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
