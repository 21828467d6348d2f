package prebuilt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/state"
	"github.com/agentgraph-dev/agentgraph/tools"
)

// Node names used by the ReAct graph.
const (
	ModelNode = "model"
	ToolsNode = "tools"
)

// OutputKey holds the final assistant text once the loop exits.
const OutputKey = "output"

// InputKey seeds the conversation when the messages channel is empty.
const InputKey = "input"

// CreateReactAgent builds the canonical tool-calling loop: a model node
// that requests tool calls, a tools node that executes them, and a
// conditional edge that loops until the model answers without calling a
// tool. The final text lands in the "output" key.
//
// The graph reads conversation history from the messages channel. When
// the history is empty, a non-empty "input" string becomes the opening
// user message, so Invoke(ctx, state.State{"input": q}) works directly.
func CreateReactAgent(p llm.Provider, toolset []tools.Tool, opts ...Option) (*graph.StateGraph, error) {
	if p == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	byName := make(map[string]tools.Tool, len(toolset))
	for _, t := range toolset {
		if t.Name == "" {
			return nil, fmt.Errorf("tool name cannot be empty")
		}
		if t.Execute == nil {
			return nil, fmt.Errorf("tool %q has no execute function", t.Name)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name)
		}
		byName[t.Name] = t
	}

	cfg := buildConfig(opts)
	defs := tools.Definitions(toolset)

	modelFn := func(ctx context.Context, s state.State) (state.State, error) {
		history, err := state.Messages(s)
		if err != nil {
			return nil, err
		}

		var appended []llm.Message
		if len(history) == 0 {
			if input := s.GetString(InputKey); input != "" {
				opening := llm.UserMessage(input)
				history = append(history, opening)
				appended = append(appended, opening)
			}
		}
		if len(history) == 0 {
			return nil, fmt.Errorf("nothing to send: no messages and no input")
		}

		reqMsgs := history
		if cfg.systemPrompt != "" {
			reqMsgs = append([]llm.Message{llm.SystemMessage(cfg.systemPrompt)}, history...)
		}

		resp, err := p.CreateCompletion(ctx, llm.CompletionRequest{
			Messages:    reqMsgs,
			Model:       cfg.model,
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
			Tools:       defs,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		appended = append(appended, resp.Message())
		update := state.AppendMessages(appended...)
		if len(resp.ToolCalls) == 0 {
			update[OutputKey] = resp.Content
		}
		return update, nil
	}

	toolsFn := func(ctx context.Context, s state.State) (state.State, error) {
		last, ok, err := state.LastMessage(s)
		if err != nil {
			return nil, err
		}
		if !ok || len(last.ToolCalls) == 0 {
			return nil, fmt.Errorf("tools node reached without pending tool calls")
		}

		results := make([]llm.Message, 0, len(last.ToolCalls))
		for _, call := range last.ToolCalls {
			results = append(results, llm.ToolMessage(call.ID, call.Name, runToolCall(ctx, byName, call)))
		}
		return state.AppendMessages(results...), nil
	}

	routeAfterModel := func(ctx context.Context, s state.State) (string, error) {
		last, ok, err := state.LastMessage(s)
		if err != nil {
			return "", err
		}
		if ok && len(last.ToolCalls) > 0 {
			return "continue", nil
		}
		return "end", nil
	}

	g := graph.NewStateGraph(state.NewSchema(state.MessagesChannel())).
		AddNode(ModelNode, modelFn).
		AddNode(ToolsNode, toolsFn).
		SetEntryPoint(ModelNode).
		AddConditionalEdges(ModelNode, routeAfterModel, map[string]string{
			"continue": ToolsNode,
			"end":      graph.END,
		}).
		AddEdge(ToolsNode, ModelNode)

	return g, nil
}

// runToolCall executes one call and renders its result for the model.
// Failures come back as tool messages rather than failing the run, so
// the model can correct itself on the next turn.
func runToolCall(ctx context.Context, byName map[string]tools.Tool, call llm.ToolCall) string {
	tool, ok := byName[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return fmt.Sprintf("Error: invalid arguments: %v", err)
		}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
