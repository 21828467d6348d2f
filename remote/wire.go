// Package remote exposes compiled graphs over gRPC. The service plumbing
// is hand-written against hand-written wire types and a JSON codec; there
// is no protoc step.
package remote

import "github.com/agentgraph-dev/agentgraph/state"

// InvokeRequest asks the server to run a registered graph to completion.
type InvokeRequest struct {
	// Graph names the registered graph to run.
	Graph string `json:"graph"`
	// State is the initial state, or the update applied when resuming a
	// thread.
	State state.State `json:"state,omitempty"`
	// ThreadID keys the run's checkpoints on the server's checkpointer.
	ThreadID string `json:"thread_id,omitempty"`
	// RunID fixes the run's correlation ID. Empty lets the server choose.
	RunID string `json:"run_id,omitempty"`
	// MaxSteps overrides the graph's superstep limit when positive.
	MaxSteps int `json:"max_steps,omitempty"`
}

// InvokeResponse carries the final state of a completed run.
type InvokeResponse struct {
	State state.State `json:"state"`
	RunID string      `json:"run_id"`
}

// StreamResponse is one event of a streaming run, mirroring
// graph.StreamEvent minus the error (failures surface as gRPC status).
type StreamResponse struct {
	// Type is the event discriminator: node, checkpoint, or done.
	Type string `json:"type"`
	// Node is the completed node for node events.
	Node string `json:"node,omitempty"`
	// Step is the superstep the event belongs to.
	Step int `json:"step,omitempty"`
	// Update is the node's partial update for node events.
	Update state.State `json:"update,omitempty"`
	// State is the full final state for done events.
	State state.State `json:"state,omitempty"`
	// CheckpointID identifies the saved checkpoint for checkpoint events.
	CheckpointID string `json:"checkpoint_id,omitempty"`
	// RunID correlates the event with its run.
	RunID string `json:"run_id,omitempty"`
}

// ListGraphsRequest asks for the names of the registered graphs.
type ListGraphsRequest struct{}

// ListGraphsResponse lists the registered graphs, sorted.
type ListGraphsResponse struct {
	Graphs []string `json:"graphs"`
}
