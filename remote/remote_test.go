package remote

import (
	"context"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/state"
)

func greetGraph(t *testing.T, store checkpoint.Store) *graph.CompiledGraph {
	t.Helper()
	g := graph.NewStateGraph(nil)
	g.AddNode("greet", func(ctx context.Context, s state.State) (state.State, error) {
		name := s.GetString("name")
		if name == "fail" {
			return nil, fmt.Errorf("asked to fail")
		}
		return state.State{"greeting": "hello " + name}, nil
	})
	g.SetEntryPoint("greet")
	g.SetFinishPoint("greet")

	var opts []graph.CompileOption
	if store != nil {
		opts = append(opts, graph.WithCheckpointer(store))
	}
	compiled, err := g.Compile(opts...)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return compiled
}

// startServer serves on a loopback port and returns a connected client.
func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, "127.0.0.1:0") }()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	client, err := Dial(srv.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return client
}

func TestInvokeRoundTrip(t *testing.T) {
	srv := NewServer()
	if err := srv.Register("greeter", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	client := startServer(t, srv)

	final, err := client.Invoke(context.Background(), "greeter", state.State{"name": "ada"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := final.GetString("greeting"); got != "hello ada" {
		t.Fatalf("greeting = %q", got)
	}
}

func TestInvokeUnknownGraph(t *testing.T) {
	client := startServer(t, NewServer())

	_, err := client.Invoke(context.Background(), "missing", nil)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", status.Code(err))
	}

	_, err = client.Invoke(context.Background(), "", nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestInvokeNodeFailure(t *testing.T) {
	srv := NewServer()
	if err := srv.Register("greeter", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	client := startServer(t, srv)

	_, err := client.Invoke(context.Background(), "greeter", state.State{"name": "fail"})
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestInvokeWithThreadResumes(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	srv := NewServer()
	if err := srv.Register("greeter", greetGraph(t, store)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	client := startServer(t, srv)

	ctx := context.Background()
	if _, err := client.Invoke(ctx, "greeter", state.State{"name": "ada"}, WithThreadID("t-1")); err != nil {
		t.Fatalf("first Invoke: %v", err)
	}

	cp, err := store.Latest(ctx, "t-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if cp.State.GetString("greeting") != "hello ada" {
		t.Fatalf("checkpointed greeting = %q", cp.State.GetString("greeting"))
	}

	// Resuming the thread keeps earlier state: no new name still greets ada.
	final, err := client.Invoke(ctx, "greeter", nil, WithThreadID("t-1"))
	if err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if got := final.GetString("greeting"); got != "hello ada" {
		t.Fatalf("resumed greeting = %q", got)
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	srv := NewServer()
	if err := srv.Register("greeter", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	client := startServer(t, srv)

	events, err := client.Stream(context.Background(), "greeter", state.State{"name": "bob"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var got []graph.StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) < 2 {
		t.Fatalf("got %d events, want at least node + done", len(got))
	}
	if got[0].Type != graph.EventNode || got[0].Node != "greet" {
		t.Fatalf("first event = %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Type != graph.EventDone {
		t.Fatalf("last event type = %q", last.Type)
	}
	if last.State.GetString("greeting") != "hello bob" {
		t.Fatalf("final greeting = %q", last.State.GetString("greeting"))
	}
}

func TestStreamFailureBecomesError(t *testing.T) {
	srv := NewServer()
	if err := srv.Register("greeter", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	client := startServer(t, srv)

	events, err := client.Stream(context.Background(), "greeter", state.State{"name": "fail"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var last graph.StreamEvent
	for ev := range events {
		last = ev
	}
	if last.Type != graph.EventError {
		t.Fatalf("last event type = %q, want error", last.Type)
	}
	if status.Code(last.Err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(last.Err))
	}
}

func TestListGraphs(t *testing.T) {
	srv := NewServer()
	if err := srv.Register("b", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := srv.Register("a", greetGraph(t, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := srv.Register("a", greetGraph(t, nil)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	client := startServer(t, srv)

	names, err := client.ListGraphs(context.Background())
	if err != nil {
		t.Fatalf("ListGraphs: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names = %v", names)
	}
}
