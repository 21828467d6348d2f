package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty registry (useful for testing).
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice replaces the earlier entry.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %q has no execute function", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// All returns a snapshot of the registered tools, sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a tool to the default registry.
func Register(t Tool) error {
	return defaultRegistry.Register(t)
}

// Get looks up a tool in the default registry.
func Get(name string) (Tool, bool) {
	return defaultRegistry.Get(name)
}

// All returns a snapshot of the default registry, sorted by name.
func All() []Tool {
	return defaultRegistry.All()
}
