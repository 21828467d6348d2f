// Package graph implements a LangGraph-style state machine for agent
// workflows: named nodes transform a shared state, edges (static or
// conditional) decide what runs next, and compiled graphs execute as a
// superstep loop with optional checkpointing per step.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/state"
)

// Virtual node names. START marks where a run enters the graph and END
// marks completion; neither is a real node.
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc transforms state. It receives a copy of the current state and
// returns a partial update, which the schema's reducers merge back in.
// Returning a nil state with a nil error means "no update".
type NodeFunc func(ctx context.Context, s state.State) (state.State, error)

// Router picks the next node after a conditional edge's source ran. The
// returned label is resolved through the edge's path map when one was
// given, otherwise it must be a node name or END.
type Router func(ctx context.Context, s state.State) (string, error)

// RetryPolicy controls per-node retries on failure.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff is the wait before attempt N+1, multiplied by N. Zero means
	// one second.
	Backoff time.Duration
}

type node struct {
	name  string
	fn    NodeFunc
	retry RetryPolicy
}

type conditionalEdge struct {
	source  string
	router  Router
	pathMap map[string]string
}

// NodeOption configures a node at AddNode time.
type NodeOption func(*node)

// WithRetry sets the node's retry policy.
func WithRetry(policy RetryPolicy) NodeOption {
	return func(n *node) {
		n.retry = policy
	}
}

// StateGraph is a mutable graph builder. Add nodes and edges, then Compile.
// Builder methods return the graph for chaining; structural problems are
// collected and reported by Compile.
type StateGraph struct {
	schema      *state.Schema
	nodes       map[string]*node
	edges       map[string][]string
	conditional map[string]*conditionalEdge
	errs        []error
}

// NewStateGraph creates an empty graph over the given schema. A nil schema
// means every state key has overwrite semantics.
func NewStateGraph(schema *state.Schema) *StateGraph {
	return &StateGraph{
		schema:      schema,
		nodes:       make(map[string]*node),
		edges:       make(map[string][]string),
		conditional: make(map[string]*conditionalEdge),
	}
}

// Schema returns the graph's state schema.
func (g *StateGraph) Schema() *state.Schema {
	return g.schema
}

// AddNode registers a named node. Names must be unique and must not collide
// with START or END.
func (g *StateGraph) AddNode(name string, fn NodeFunc, opts ...NodeOption) *StateGraph {
	if name == START || name == END {
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
		return g
	}
	if name == "" {
		g.errs = append(g.errs, fmt.Errorf("node name cannot be empty"))
		return g
	}
	if fn == nil {
		g.errs = append(g.errs, fmt.Errorf("node %q has no function", name))
		return g
	}
	if _, exists := g.nodes[name]; exists {
		g.errs = append(g.errs, fmt.Errorf("node %q already added", name))
		return g
	}

	n := &node{name: name, fn: fn}
	for _, opt := range opts {
		opt(n)
	}
	g.nodes[name] = n
	return g
}

// AddEdge adds a static edge. After from runs, to is scheduled for the next
// superstep. Multiple static edges from one node fan out in parallel.
func (g *StateGraph) AddEdge(from, to string) *StateGraph {
	if from == END {
		g.errs = append(g.errs, fmt.Errorf("cannot add an edge out of END"))
		return g
	}
	if to == START {
		g.errs = append(g.errs, fmt.Errorf("cannot add an edge into START"))
		return g
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return g
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdges routes dynamically after from runs. The router's
// label is looked up in pathMap; a nil pathMap treats the label as a node
// name (or END) directly. A node has at most one conditional edge.
func (g *StateGraph) AddConditionalEdges(from string, router Router, pathMap map[string]string) *StateGraph {
	if from == START || from == END {
		g.errs = append(g.errs, fmt.Errorf("conditional edges cannot start from %q", from))
		return g
	}
	if router == nil {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q has no router", from))
		return g
	}
	if _, exists := g.conditional[from]; exists {
		g.errs = append(g.errs, fmt.Errorf("node %q already has conditional edges", from))
		return g
	}
	g.conditional[from] = &conditionalEdge{source: from, router: router, pathMap: pathMap}
	return g
}

// SetEntryPoint declares where runs start. Equivalent to AddEdge(START, name).
func (g *StateGraph) SetEntryPoint(name string) *StateGraph {
	return g.AddEdge(START, name)
}

// SetFinishPoint declares a terminal node. Equivalent to AddEdge(name, END).
func (g *StateGraph) SetFinishPoint(name string) *StateGraph {
	return g.AddEdge(name, END)
}

// CompileOption configures the compiled graph.
type CompileOption func(*CompiledGraph)

// WithCheckpointer persists a checkpoint after every superstep and enables
// resuming runs by thread ID.
func WithCheckpointer(store checkpoint.Store) CompileOption {
	return func(c *CompiledGraph) {
		c.checkpointer = store
	}
}

// WithName sets the graph name used in logs, traces, and metrics. Defaults
// to "graph".
func WithName(name string) CompileOption {
	return func(c *CompiledGraph) {
		if name != "" {
			c.name = name
		}
	}
}

// WithDefaultMaxSteps sets the superstep limit runs inherit when they do
// not pass WithMaxSteps themselves.
func WithDefaultMaxSteps(n int) CompileOption {
	return func(c *CompiledGraph) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Compile validates the graph and returns an executable form. The graph
// must have an entry point, every edge target must exist, every node must
// be reachable from START, and any cycle must contain at least one node
// with a conditional edge as its exit.
func (g *StateGraph) Compile(opts ...CompileOption) (*CompiledGraph, error) {
	if len(g.errs) > 0 {
		return nil, fmt.Errorf("graph has %d build error(s), first: %w", len(g.errs), g.errs[0])
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	compiled := &CompiledGraph{
		name:        "graph",
		schema:      g.schema,
		nodes:       g.nodes,
		edges:       g.edges,
		conditional: g.conditional,
		maxSteps:    DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(compiled)
	}
	return compiled, nil
}
