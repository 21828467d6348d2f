package prebuilt

import (
	"fmt"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/state"
)

// NamedNode pairs a node name with its function for sequence building.
type NamedNode struct {
	Name string
	Fn   graph.NodeFunc
}

// NewSequence builds a linear pipeline: each step runs after the previous
// one, the first step is the entry point, the last one finishes the run.
// A nil schema gives every state key overwrite semantics.
func NewSequence(schema *state.Schema, steps ...NamedNode) (*graph.StateGraph, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequence needs at least one step")
	}

	g := graph.NewStateGraph(schema)
	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step %d has no name", i)
		}
		if step.Fn == nil {
			return nil, fmt.Errorf("step %q has no function", step.Name)
		}
		g.AddNode(step.Name, step.Fn)
		if i == 0 {
			g.SetEntryPoint(step.Name)
		} else {
			g.AddEdge(steps[i-1].Name, step.Name)
		}
	}
	g.SetFinishPoint(steps[len(steps)-1].Name)

	return g, nil
}
