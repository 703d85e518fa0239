// Package provider defines the uniform adapter interface to inference
// backends and the catalog of configured providers.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/mpieniak01/venom/pkg/models"
)

// Usage captures normalized token usage for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the normalized output of one adapter call.
type Result struct {
	// Content is the generated text.
	Content string `json:"content"`
	// Usage is the reported token usage, if the backend supplies one.
	Usage *Usage `json:"usage,omitempty"`
}

// Adapter is the uniform request/response interface to one inference backend.
// The router and governance treat all adapters identically regardless of
// backend family.
type Adapter interface {
	// Invoke sends a payload to the named model. The context carries the
	// per-call timeout; implementations must honor cancellation.
	Invoke(ctx context.Context, model, payload string) (*Result, error)

	// Name returns the adapter's provider name.
	Name() string
}

// Spec describes one configured provider in the catalog.
type Spec struct {
	// Name is the unique provider identifier.
	Name string `yaml:"name"`
	// Class is local or remote.
	Class models.BackendClass `yaml:"class"`
	// Model is the default model invoked on this provider.
	Model string `yaml:"model"`
	// CostPer1K is the blended USD cost per 1000 tokens. Local providers
	// carry zero cost.
	CostPer1K float64 `yaml:"cost_per_1k"`
	// BaseURL overrides the backend endpoint for HTTP adapters.
	BaseURL string `yaml:"base_url,omitempty"`
	// Priority orders providers within their class; lower runs first.
	Priority int `yaml:"priority"`
}

// EstimateCost projects the USD cost of a call with the given token count.
func (s Spec) EstimateCost(tokens int) float64 {
	if s.CostPer1K <= 0 {
		return 0
	}
	return float64(tokens) / 1000.0 * s.CostPer1K
}

// Registry holds the configured providers and their adapters.
// Candidate ordering within a class is fixed at construction.
type Registry struct {
	specs    []Spec
	adapters map[string]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a registry from an ordered catalog.
func NewRegistry(specs []Spec) *Registry {
	ordered := make([]Spec, len(specs))
	copy(ordered, specs)
	sortSpecs(ordered)
	return &Registry{
		specs:    ordered,
		adapters: make(map[string]Adapter),
	}
}

// sortSpecs orders by class priority then name for deterministic walks.
func sortSpecs(specs []Spec) {
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			if specs[j].Priority < specs[i].Priority ||
				(specs[j].Priority == specs[i].Priority && specs[j].Name < specs[i].Name) {
				specs[i], specs[j] = specs[j], specs[i]
			}
		}
	}
}

// Register attaches an adapter to a configured provider.
func (r *Registry) Register(name string, a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spec(name); !ok {
		return fmt.Errorf("provider %q not in catalog", name)
	}
	r.adapters[name] = a
	return nil
}

// Adapter returns the adapter for a provider, if one is registered.
// Providers without a registered adapter are treated as offline.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Spec returns the catalog entry for a provider.
func (r *Registry) Spec(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spec(name)
}

func (r *Registry) spec(name string) (Spec, bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Candidates returns the ordered provider specs for a backend class.
func (r *Registry) Candidates(class models.BackendClass) []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Spec
	for _, s := range r.specs {
		if s.Class == class {
			out = append(out, s)
		}
	}
	return out
}

// All returns every catalog entry in walk order.
func (r *Registry) All() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Reload replaces the catalog, keeping adapters registered for providers
// that survive the reload.
func (r *Registry) Reload(specs []Spec) {
	ordered := make([]Spec, len(specs))
	copy(ordered, specs)
	sortSpecs(ordered)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = ordered
	for name := range r.adapters {
		if _, ok := r.spec(name); !ok {
			delete(r.adapters, name)
		}
	}
}
