package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/prebuilt"
	"github.com/agentgraph-dev/agentgraph/state"
	"github.com/agentgraph-dev/agentgraph/tools"
)

// A supervisor routing between a worker that answers directly and a
// nested ReAct worker, with checkpoints across the whole run.
func TestSupervisorWithNestedReactWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	classifier := llm.NewMockProvider()
	classifier.AddTextResponse("math")

	worker := llm.NewMockProvider()
	worker.AddToolCallResponse("call-1", "calculator", `{"operation":"add","a":20,"b":22}`)
	worker.AddTextResponse("The sum is 42.")

	mathGraph, err := prebuilt.CreateReactAgent(worker, []tools.Tool{tools.Calculator()})
	if err != nil {
		t.Fatalf("CreateReactAgent: %v", err)
	}
	// The worker runs its own compiled graph inside one supervisor node.
	mathCompiled, err := mathGraph.Compile(graph.WithName("math-worker"))
	if err != nil {
		t.Fatalf("Compile worker: %v", err)
	}

	mathNode := func(ctx context.Context, s state.State) (state.State, error) {
		final, err := mathCompiled.Invoke(ctx, state.State{
			prebuilt.InputKey: s.GetString(prebuilt.InputKey),
		})
		if err != nil {
			return nil, err
		}
		return state.State{prebuilt.OutputKey: final.GetString(prebuilt.OutputKey)}, nil
	}
	chitchatNode := func(ctx context.Context, s state.State) (state.State, error) {
		return state.State{prebuilt.OutputKey: "hi!"}, nil
	}

	sup, err := prebuilt.CreateSupervisor(classifier, map[string]graph.NodeFunc{
		"math":     mathNode,
		"chitchat": chitchatNode,
	}, prebuilt.WithDefaultRoute("chitchat"))
	if err != nil {
		t.Fatalf("CreateSupervisor: %v", err)
	}

	compiled, err := sup.Compile(graph.WithName("supervisor"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	final, err := compiled.Invoke(ctx, state.State{prebuilt.InputKey: "what is 20+22?"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if got := final.GetString(prebuilt.RouteKey); got != "math" {
		t.Fatalf("route = %q, want math", got)
	}
	if got := final.GetString(prebuilt.OutputKey); got != "The sum is 42." {
		t.Fatalf("output = %q", got)
	}

	// The nested worker did the tool round trip.
	if worker.CallCount() != 2 {
		t.Fatalf("worker calls = %d, want 2", worker.CallCount())
	}
}
