package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/internal/observability"
	pkgobs "github.com/agentgraph-dev/agentgraph/pkg/observability"
	"github.com/agentgraph-dev/agentgraph/state"
)

// DefaultMaxSteps caps supersteps per invocation when WithMaxSteps is not
// given. Agent loops normally finish in a handful of steps; hitting the cap
// almost always means a router never routes to END.
const DefaultMaxSteps = 25

// CompiledGraph is an immutable, validated graph ready to run. It is safe
// for concurrent use; every invocation works on its own state copies.
type CompiledGraph struct {
	name         string
	schema       *state.Schema
	nodes        map[string]*node
	edges        map[string][]string
	conditional  map[string]*conditionalEdge
	checkpointer checkpoint.Store
	maxSteps     int
}

// Name returns the graph's name.
func (c *CompiledGraph) Name() string {
	return c.name
}

// Nodes returns the graph's node names, sorted.
func (c *CompiledGraph) Nodes() []string {
	names := make([]string, 0, len(c.nodes))
	for name := range c.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOption configures a single invocation.
type RunOption func(*runConfig)

type runConfig struct {
	threadID string
	runID    string
	maxSteps int
}

// WithThreadID keys the run's checkpoints. Invoking again with the same
// thread ID resumes from the thread's latest checkpoint. Requires a
// checkpointer; ignored otherwise.
func WithThreadID(id string) RunOption {
	return func(rc *runConfig) {
		rc.threadID = id
	}
}

// WithMaxSteps overrides the superstep limit for this run.
func WithMaxSteps(n int) RunOption {
	return func(rc *runConfig) {
		if n > 0 {
			rc.maxSteps = n
		}
	}
}

// WithRunID fixes the run ID instead of generating one. Useful when the
// caller already has a correlation ID, such as the gRPC service.
func WithRunID(id string) RunOption {
	return func(rc *runConfig) {
		if id != "" {
			rc.runID = id
		}
	}
}

// StreamEventType discriminates events emitted by Stream.
type StreamEventType string

const (
	// EventNode is emitted after each node completes, carrying its update.
	EventNode StreamEventType = "node"
	// EventCheckpoint is emitted after a superstep's checkpoint is saved.
	EventCheckpoint StreamEventType = "checkpoint"
	// EventDone is the final event of a successful run, carrying the full
	// final state.
	EventDone StreamEventType = "done"
	// EventError is the final event of a failed run.
	EventError StreamEventType = "error"
)

// StreamEvent is one progress notification from a streaming run.
type StreamEvent struct {
	Type  StreamEventType
	RunID string
	// Node is the completed node's name for EventNode.
	Node string
	// Step is the superstep the event belongs to.
	Step int
	// Update holds the node's partial update for EventNode.
	Update state.State
	// State holds the full final state for EventDone.
	State state.State
	// CheckpointID identifies the saved checkpoint for EventCheckpoint.
	CheckpointID string
	// Err carries the terminal error for EventError.
	Err error
}

// Invoke runs the graph to completion and returns the final state.
func (c *CompiledGraph) Invoke(ctx context.Context, initial state.State, opts ...RunOption) (state.State, error) {
	return c.run(ctx, initial, nil, opts...)
}

// Stream runs the graph and emits progress events on the returned channel.
// The channel closes after the terminal EventDone or EventError. The caller
// must drain it; cancel ctx to abandon a run early.
func (c *CompiledGraph) Stream(ctx context.Context, initial state.State, opts ...RunOption) (<-chan StreamEvent, error) {
	events := make(chan StreamEvent)

	emit := func(ev StreamEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		final, err := c.run(ctx, initial, emit, opts...)
		if err != nil {
			emit(StreamEvent{Type: EventError, Err: err})
			return
		}
		emit(StreamEvent{Type: EventDone, State: final})
	}()

	return events, nil
}

// run is the superstep loop shared by Invoke and Stream.
func (c *CompiledGraph) run(ctx context.Context, initial state.State, emit func(StreamEvent), opts ...RunOption) (state.State, error) {
	cfg := runConfig{maxSteps: c.maxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.New().String()
	}
	if emit == nil {
		emit = func(StreamEvent) {}
	}

	ctx, span := observability.StartSpanWithAttrs(ctx, "graph.invoke", map[string]any{
		"graph.name":      c.name,
		"graph.run_id":    cfg.runID,
		"graph.thread_id": cfg.threadID,
	})
	defer span.End()

	pkgobs.IncActiveRuns()
	defer pkgobs.DecActiveRuns()

	started := time.Now()
	current, frontier, baseStep, err := c.initialRunState(ctx, initial, cfg)
	if err != nil {
		observability.RecordError(span, err)
		pkgobs.RecordGraphRun(c.name, "error", 0, time.Since(started))
		return nil, err
	}

	stepsRun := 0
	for len(frontier) > 0 {
		select {
		case <-ctx.Done():
			observability.RecordError(span, ctx.Err())
			pkgobs.RecordGraphRun(c.name, "cancelled", stepsRun, time.Since(started))
			return nil, ctx.Err()
		default:
		}

		if stepsRun >= cfg.maxSteps {
			err := fmt.Errorf("%w: %d steps (run %s)", ErrMaxStepsExceeded, cfg.maxSteps, cfg.runID)
			observability.RecordError(span, err)
			pkgobs.RecordGraphRun(c.name, "error", stepsRun, time.Since(started))
			return nil, err
		}

		stepsRun++
		step := baseStep + stepsRun

		merged, err := c.runSuperstep(ctx, current, frontier, step, cfg, emit)
		if err != nil {
			observability.RecordError(span, err)
			pkgobs.RecordGraphRun(c.name, "error", stepsRun, time.Since(started))
			return nil, err
		}
		current = merged

		frontier, err = c.nextFrontier(ctx, current, frontier)
		if err != nil {
			observability.RecordError(span, err)
			pkgobs.RecordGraphRun(c.name, "error", stepsRun, time.Since(started))
			return nil, err
		}

		if err := c.saveCheckpoint(ctx, cfg, step, current, frontier, emit); err != nil {
			observability.RecordError(span, err)
			pkgobs.RecordGraphRun(c.name, "error", stepsRun, time.Since(started))
			return nil, err
		}
	}

	pkgobs.RecordGraphRun(c.name, "success", stepsRun, time.Since(started))
	return current, nil
}

// initialRunState resolves where the run starts: a fresh pass from the
// entry edges, or the thread's latest checkpoint when one exists. A
// checkpoint of a completed run starts a new pass from the entry with the
// preserved state, which is how a conversation thread continues.
func (c *CompiledGraph) initialRunState(ctx context.Context, initial state.State, cfg runConfig) (state.State, []string, int, error) {
	entry := sortedCopy(c.edges[START])

	if c.checkpointer == nil || cfg.threadID == "" {
		fresh, err := c.schema.Init(initial)
		if err != nil {
			return nil, nil, 0, err
		}
		return fresh, entry, 0, nil
	}

	cp, err := c.checkpointer.Latest(ctx, cfg.threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			fresh, err := c.schema.Init(initial)
			if err != nil {
				return nil, nil, 0, err
			}
			return fresh, entry, 0, nil
		}
		return nil, nil, 0, fmt.Errorf("load checkpoint: %w", err)
	}

	debugf("[Graph] resuming thread %s from checkpoint %s (step %d)", cfg.threadID, cp.ID, cp.Step)

	current, err := c.schema.Apply(cp.State, initial)
	if err != nil {
		return nil, nil, 0, err
	}

	frontier := sortedCopy(cp.NextNodes)
	if len(frontier) == 0 {
		frontier = entry
	}
	return current, frontier, cp.Step, nil
}

// runSuperstep executes every frontier node against a snapshot of the
// current state and merges their updates in frontier order.
func (c *CompiledGraph) runSuperstep(ctx context.Context, current state.State, frontier []string, step int, cfg runConfig, emit func(StreamEvent)) (state.State, error) {
	ctx, span := observability.StartSpanWithAttrs(ctx, "graph.step", map[string]any{
		"graph.step":   step,
		"graph.run_id": cfg.runID,
	})
	defer span.End()

	debugf("[Graph] run %s step %d: executing %v", cfg.runID, step, frontier)

	updates := make([]state.State, len(frontier))

	if len(frontier) == 1 {
		snapshot, err := current.Clone()
		if err != nil {
			return nil, err
		}
		update, err := c.runNode(ctx, frontier[0], snapshot, step, cfg)
		if err != nil {
			return nil, err
		}
		updates[0] = update
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range frontier {
			g.Go(func() error {
				snapshot, err := current.Clone()
				if err != nil {
					return err
				}
				update, err := c.runNode(gctx, name, snapshot, step, cfg)
				if err != nil {
					return err
				}
				updates[i] = update
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	merged := current
	for i, update := range updates {
		if update == nil {
			continue
		}
		next, err := c.schema.Apply(merged, update)
		if err != nil {
			return nil, &NodeError{Node: frontier[i], Step: step, Err: err}
		}
		merged = next
	}

	for i, name := range frontier {
		emit(StreamEvent{Type: EventNode, RunID: cfg.runID, Node: name, Step: step, Update: updates[i]})
	}

	return merged, nil
}

// runNode executes one node with its retry policy.
func (c *CompiledGraph) runNode(ctx context.Context, name string, snapshot state.State, step int, cfg runConfig) (state.State, error) {
	n := c.nodes[name]

	ctx, span := observability.StartSpanWithAttrs(ctx, "graph.node."+name, map[string]any{
		"graph.node":   name,
		"graph.step":   step,
		"graph.run_id": cfg.runID,
	})
	defer span.End()

	attempts := n.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := n.retry.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		update, err := n.fn(ctx, snapshot)
		if err == nil {
			pkgobs.RecordNodeExecution(c.name, name, "success", time.Since(started))
			return update, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			debugf("[Graph] node %s attempt %d failed, retrying: %v", name, attempt+1, err)
			select {
			case <-ctx.Done():
				pkgobs.RecordNodeExecution(c.name, name, "cancelled", time.Since(started))
				return nil, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt+1)):
			}
		}
	}

	err := &NodeError{Node: name, Step: step, Err: lastErr}
	observability.RecordError(span, err)
	pkgobs.RecordNodeExecution(c.name, name, "error", time.Since(started))
	return nil, err
}

// nextFrontier follows the executed nodes' edges against the merged state.
// Static edges always fire; conditional edges consult their router.
func (c *CompiledGraph) nextFrontier(ctx context.Context, merged state.State, executed []string) ([]string, error) {
	seen := make(map[string]bool)
	var next []string

	add := func(target string) {
		if target == END || seen[target] {
			return
		}
		seen[target] = true
		next = append(next, target)
	}

	for _, name := range executed {
		for _, target := range c.edges[name] {
			add(target)
		}

		edge := c.conditional[name]
		if edge == nil {
			continue
		}

		routed, err := edge.router(ctx, merged)
		if err != nil {
			return nil, &RouterError{Node: name, Err: err}
		}
		target := routed
		if edge.pathMap != nil {
			mapped, ok := edge.pathMap[routed]
			if !ok {
				return nil, &RouterError{Node: name, Err: fmt.Errorf("label %q not in path map", routed)}
			}
			target = mapped
		} else if target != END {
			if _, ok := c.nodes[target]; !ok {
				return nil, &RouterError{Node: name, Err: fmt.Errorf("%w: %q", ErrUnknownNode, target)}
			}
		}
		add(target)
	}

	sort.Strings(next)
	return next, nil
}

// saveCheckpoint persists the superstep's result when checkpointing is on.
func (c *CompiledGraph) saveCheckpoint(ctx context.Context, cfg runConfig, step int, current state.State, frontier []string, emit func(StreamEvent)) error {
	if c.checkpointer == nil || cfg.threadID == "" {
		return nil
	}

	cp := &checkpoint.Checkpoint{
		ID:        uuid.New().String(),
		ThreadID:  cfg.threadID,
		Step:      step,
		State:     current,
		NextNodes: frontier,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.checkpointer.Put(ctx, cp); err != nil {
		pkgobs.RecordCheckpointOp("put", "error")
		return fmt.Errorf("save checkpoint: %w", err)
	}
	pkgobs.RecordCheckpointOp("put", "success")

	emit(StreamEvent{Type: EventCheckpoint, RunID: cfg.runID, Step: step, CheckpointID: cp.ID})
	return nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func debugf(format string, args ...any) {
	if os.Getenv("AGENTGRAPH_DEBUG") == "true" {
		log.Printf(format, args...)
	}
}
