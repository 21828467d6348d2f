package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentgraph-dev/agentgraph/pkg/config"
	"github.com/agentgraph-dev/agentgraph/state"
)

// NodeFactory builds a node function from a declarative node's options.
type NodeFactory func(name string, options map[string]any) (NodeFunc, error)

// NodeRegistry resolves declarative node kinds to factories. Conditional
// routing stays in code; config graphs use static edges only.
type NodeRegistry struct {
	mu    sync.RWMutex
	kinds map[string]NodeFactory
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{kinds: make(map[string]NodeFactory)}
}

// Register adds a factory for a node kind.
func (r *NodeRegistry) Register(kind string, factory NodeFactory) error {
	if kind == "" {
		return fmt.Errorf("node kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for kind %q is nil", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("node kind %q already registered", kind)
	}
	r.kinds[kind] = factory
	return nil
}

// Kinds returns the registered kinds, sorted.
func (r *NodeRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

func (r *NodeRegistry) build(nc config.NodeConfig) (NodeFunc, error) {
	r.mu.RLock()
	factory, ok := r.kinds[nc.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown node kind %q for node %q", nc.Kind, nc.Name)
	}
	fn, err := factory(nc.Name, nc.Options)
	if err != nil {
		return nil, fmt.Errorf("building node %q (kind %s): %w", nc.Name, nc.Kind, err)
	}
	return fn, nil
}

// FromConfig builds a StateGraph from a declarative definition. Node kinds
// are resolved through the registry; the graph still needs Compile. The
// graph's state uses the standard messages channel.
func FromConfig(cfg *config.GraphConfig, registry *NodeRegistry) (*StateGraph, error) {
	if cfg == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("node registry is nil")
	}

	g := NewStateGraph(state.NewSchema(state.MessagesChannel()))

	for _, nc := range cfg.Nodes {
		fn, err := registry.build(nc)
		if err != nil {
			return nil, err
		}
		g.AddNode(nc.Name, fn)
	}

	for _, edge := range cfg.Edges {
		g.AddEdge(edge.From, edge.To)
	}

	if cfg.Entry != "" {
		g.SetEntryPoint(cfg.Entry)
	}
	for _, finish := range cfg.Finish {
		g.SetFinishPoint(finish)
	}

	if len(g.errs) > 0 {
		return nil, fmt.Errorf("invalid graph config: %w", g.errs[0])
	}
	return g, nil
}
