package vectorstore

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a VectorStore from a Config.
type Factory func(config Config) (VectorStore, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register makes a backend available under a name. Backends call this
// from init, so importing a backend package is enough to enable it.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if factory == nil {
		panic("vectorstore: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("vectorstore: Register called twice for provider " + name)
	}
	registry[name] = factory
}

// New validates the config and constructs the backend named by
// config.Provider.
func New(config Config) (VectorStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mu.RLock()
	factory, ok := registry[config.Provider]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown vector store provider: %s (available: %v)", config.Provider, Providers())
	}
	return factory(config)
}

// Providers returns the registered backend names, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
