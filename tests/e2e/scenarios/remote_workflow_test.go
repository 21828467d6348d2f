package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/agentgraph-dev/agentgraph/agent"
	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/remote"
	"github.com/agentgraph-dev/agentgraph/state"
)

// The starter agent served over gRPC: invoke from a client, keep the
// conversation on one server-side thread, and stream a second run.
func TestAgentServedOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := llm.NewMockProvider()
	provider.AddTextResponse("Hello from the server.")
	provider.AddTextResponse("Still here.")

	g, err := agent.BuildGraph(
		agent.WithProvider(provider),
		agent.WithCheckpointer(checkpoint.NewMemoryStore()),
	)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	srv := remote.NewServer()
	if err := srv.Register(agent.GraphName, g); err != nil {
		t.Fatalf("Register: %v", err)
	}

	serveCtx, stopServer := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(serveCtx, "127.0.0.1:0") }()
	defer func() {
		stopServer()
		select {
		case <-serveDone:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	client, err := remote.Dial(srv.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	final, err := client.Invoke(ctx, agent.GraphName,
		state.State{"input": "hello?"}, remote.WithThreadID("remote-thread"))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := final.GetString(agent.OutputKey); got != "Hello from the server." {
		t.Fatalf("output = %q", got)
	}

	// Second turn streams on the same thread.
	events, err := client.Stream(ctx, agent.GraphName,
		state.AppendMessages(llm.UserMessage("are you there?")),
		remote.WithThreadID("remote-thread"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var last graph.StreamEvent
	sawCheckpoint := false
	for ev := range events {
		if ev.Type == graph.EventCheckpoint {
			sawCheckpoint = true
		}
		last = ev
	}
	if last.Type != graph.EventDone {
		t.Fatalf("terminal event = %q", last.Type)
	}
	if !sawCheckpoint {
		t.Fatal("expected checkpoint events on a threaded run")
	}
	if got := last.State.GetString(agent.OutputKey); got != "Still here." {
		t.Fatalf("streamed output = %q", got)
	}

	// The second model call saw the thread's restored history.
	calls := provider.Calls()
	if len(calls) != 2 {
		t.Fatalf("provider calls = %d", len(calls))
	}
	if len(calls[1].Messages) != 3 {
		t.Fatalf("restored history = %d messages, want 3", len(calls[1].Messages))
	}
}
