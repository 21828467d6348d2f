package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/state"
)

func TestBuildGraphAnswersInput(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddTextResponse("hello back")

	g, err := BuildGraph(WithProvider(provider))
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{InputKey: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello back", final.GetString(OutputKey))
}

func TestBuildGraphUsesDefaultTools(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddToolCallResponse("call-1", "calculator", `{"operation":"add","a":2,"b":3}`)
	provider.AddTextResponse("2+3 is 5")

	g, err := BuildGraph(WithProvider(provider))
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{InputKey: "what is 2+3?"})
	require.NoError(t, err)
	assert.Equal(t, "2+3 is 5", final.GetString(OutputKey))

	msgs, err := state.Messages(final)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "5", msgs[2].Content)
}

func TestBuildGraphResumesThread(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddTextResponse("first answer")
	provider.AddTextResponse("second answer")

	store := checkpoint.NewMemoryStore()
	g, err := BuildGraph(WithProvider(provider), WithCheckpointer(store))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = g.Invoke(ctx, State{InputKey: "first question"}, graph.WithThreadID("conv-1"))
	require.NoError(t, err)

	// Second turn on the same thread: the history from the first turn is
	// restored from the checkpoint, so the new user message arrives on top
	// of it.
	second := state.AppendMessages(llm.UserMessage("second question"))
	final, err := g.Invoke(ctx, second, graph.WithThreadID("conv-1"))
	require.NoError(t, err)
	assert.Equal(t, "second answer", final.GetString(OutputKey))

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1].Messages, 3)
}

func TestBuildGraphFirstTurnFromMessages(t *testing.T) {
	// A fresh thread may start from an appended user message instead of the
	// input key — the chat REPL seeds every turn this way.
	provider := llm.NewMockProvider()
	provider.AddTextResponse("hello back")

	g, err := BuildGraph(WithProvider(provider))
	require.NoError(t, err)

	initial := state.AppendMessages(llm.UserMessage("hello"))
	final, err := g.Invoke(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, "hello back", final.GetString(OutputKey))

	calls := provider.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, "hello", calls[0].Messages[0].Content)
}

func TestBuildGraphWithNoTools(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddTextResponse("just chatting")

	g, err := BuildGraph(WithProvider(provider), WithTools())
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), State{InputKey: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "just chatting", final.GetString(OutputKey))

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Tools)
}

func TestBuildGraphSystemPromptAndModel(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddTextResponse("ok")

	g, err := BuildGraph(
		WithProvider(provider),
		WithSystemPrompt("Be brief."),
		WithModel("gpt-4o-mini"),
	)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), State{InputKey: "hi"})
	require.NoError(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.RoleSystem, calls[0].Messages[0].Role)
	assert.Equal(t, "gpt-4o-mini", calls[0].Model)
}

func TestBuildGraphUnknownProviderFails(t *testing.T) {
	t.Setenv("AGENTGRAPH_PROVIDER", "no-such-provider")

	_, err := BuildGraph()
	require.Error(t, err)
}
