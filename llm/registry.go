package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a provider from configuration
type Factory func(config map[string]any) (Provider, error)

// Registry manages LLM providers and provider factories
type Registry struct {
	providers map[string]Provider
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		factories: make(map[string]Factory),
	}
}

// Register registers a provider instance
func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// RegisterFactory registers a provider factory
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves a registered provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider '%s' not found", name)
	}

	return provider, nil
}

// Has checks if a provider is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Create builds a provider through its registered factory and registers it
func (r *Registry) Create(name string, config map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no factory registered for provider '%s'", name)
	}

	provider, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create provider '%s': %w", name, err)
	}

	r.Register(name, provider)
	return provider, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListFactories returns all registered factory names, sorted
func (r *Registry) ListFactories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Global registry
var globalRegistry = NewRegistry()

// Register registers a provider globally
func Register(name string, provider Provider) {
	globalRegistry.Register(name, provider)
}

// RegisterFactory registers a provider factory globally
func RegisterFactory(name string, factory Factory) {
	globalRegistry.RegisterFactory(name, factory)
}

// Get retrieves a provider from the global registry
func Get(name string) (Provider, error) {
	return globalRegistry.Get(name)
}

// Has checks if a provider exists in the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// Create builds a provider through a globally registered factory
func Create(name string, config map[string]any) (Provider, error) {
	return globalRegistry.Create(name, config)
}

// List returns all registered provider names from the global registry
func List() []string {
	return globalRegistry.List()
}

// ListFactories returns all factory names from the global registry
func ListFactories() []string {
	return globalRegistry.ListFactories()
}
