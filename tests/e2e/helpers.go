package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/llm"
)

// TestEnvironment bundles the pieces every end-to-end test needs: a
// scripted provider, a checkpoint store, and a bounded context.
type TestEnvironment struct {
	t        *testing.T
	provider *llm.MockProvider
	store    checkpoint.Store
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewTestEnvironment creates an environment with an in-memory checkpoint
// store and a 30 second deadline.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	return &TestEnvironment{
		t:        t,
		provider: llm.NewMockProvider(),
		store:    checkpoint.NewMemoryStore(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Cleanup releases the environment's context.
func (env *TestEnvironment) Cleanup() {
	env.cancel()
}

// Provider returns the scripted LLM provider.
func (env *TestEnvironment) Provider() *llm.MockProvider {
	return env.provider
}

// Store returns the checkpoint store.
func (env *TestEnvironment) Store() checkpoint.Store {
	return env.store
}

// Context returns the environment's bounded context.
func (env *TestEnvironment) Context() context.Context {
	return env.ctx
}

// AssertNoError fails the test when err is non-nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// AssertEqual fails the test when got differs from want.
func AssertEqual[T comparable](t *testing.T, want, got T, msg string) {
	t.Helper()
	if want != got {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}
