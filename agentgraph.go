// Package agentgraph is a LangGraph-style agent workflow framework: state
// graphs with conditional edges compiled into checkpointable superstep
// runs, LLM provider adapters, tools, and prebuilt agent constructors.
//
// This package is the facade. It re-exports the starter agent's state type
// and graph builder so one import is enough to run the default workflow:
//
//	g, err := agentgraph.BuildAgentGraph()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := g.Invoke(ctx, agentgraph.AgentState{"input": "example query"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.GetString("output"))
//
// The example is illustrative, not a contract on the state's keys: graphs
// carry whatever keys their nodes read and write. Custom workflows use the
// graph, state, and checkpoint packages directly.
package agentgraph

import (
	"github.com/agentgraph-dev/agentgraph/agent"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/state"
)

// Version is the framework version.
const Version = "0.1.0"

// AgentState is the starter agent's state type.
type AgentState = agent.State

// BuildAgentGraph assembles and compiles the starter agent's workflow.
// Options come from the agent package: provider, tools, checkpointer,
// prompts, step limit.
func BuildAgentGraph(opts ...agent.Option) (*graph.CompiledGraph, error) {
	return agent.BuildGraph(opts...)
}

// NewStateGraph starts a custom graph over the given schema. It is a
// convenience alias for graph.NewStateGraph.
func NewStateGraph(schema *state.Schema) *graph.StateGraph {
	return graph.NewStateGraph(schema)
}

// Virtual node names, re-exported for custom graphs.
const (
	START = graph.START
	END   = graph.END
)
