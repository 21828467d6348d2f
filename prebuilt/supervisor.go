package prebuilt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/state"
)

// SupervisorNode is the name of the classifier node a supervisor graph
// starts at.
const SupervisorNode = "supervisor"

// RouteKey is the state key the supervisor writes its chosen route to.
const RouteKey = "route"

// CreateSupervisor builds a routing graph: a classifier node asks the
// model which of the named routes handles the input, then a conditional
// edge dispatches to that route's node. Each route node runs once and
// ends the run.
//
// The classifier's answer is validated against the route set. An answer
// matching no route falls back to WithDefaultRoute when given, otherwise
// the run fails.
func CreateSupervisor(p llm.Provider, routes map[string]graph.NodeFunc, opts ...Option) (*graph.StateGraph, error) {
	if p == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("supervisor needs at least one route")
	}

	cfg := buildConfig(opts)

	labels := make([]string, 0, len(routes))
	for label, fn := range routes {
		if label == "" {
			return nil, fmt.Errorf("route label cannot be empty")
		}
		if fn == nil {
			return nil, fmt.Errorf("route %q has no node function", label)
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	if cfg.defaultRoute != "" {
		if _, ok := routes[cfg.defaultRoute]; !ok {
			return nil, fmt.Errorf("default route %q is not a route", cfg.defaultRoute)
		}
	}

	classifierPrompt := cfg.systemPrompt
	if classifierPrompt == "" {
		classifierPrompt = "You are a router. Read the user's request and answer with exactly one " +
			"of the following labels, nothing else: " + strings.Join(labels, ", ")
	}

	classifyFn := func(ctx context.Context, s state.State) (state.State, error) {
		input := s.GetString(InputKey)
		if input == "" {
			if last, ok, err := state.LastMessage(s); err != nil {
				return nil, err
			} else if ok {
				input = last.Content
			}
		}
		if input == "" {
			return nil, fmt.Errorf("nothing to route: no input and no messages")
		}

		resp, err := p.CreateCompletion(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				llm.SystemMessage(classifierPrompt),
				llm.UserMessage(input),
			},
			Model:       cfg.model,
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("classifier call failed: %w", err)
		}

		label := normalizeLabel(resp.Content, labels)
		if label == "" {
			if cfg.defaultRoute == "" {
				return nil, fmt.Errorf("classifier answered %q, not a known route", strings.TrimSpace(resp.Content))
			}
			label = cfg.defaultRoute
		}
		return state.State{RouteKey: label}, nil
	}

	routeAfterClassify := func(ctx context.Context, s state.State) (string, error) {
		label := s.GetString(RouteKey)
		if _, ok := routes[label]; !ok {
			return "", fmt.Errorf("state carries unknown route %q", label)
		}
		return label, nil
	}

	pathMap := make(map[string]string, len(labels))
	g := graph.NewStateGraph(state.NewSchema(state.MessagesChannel())).
		AddNode(SupervisorNode, classifyFn).
		SetEntryPoint(SupervisorNode)

	for _, label := range labels {
		g.AddNode(label, routes[label])
		g.SetFinishPoint(label)
		pathMap[label] = label
	}
	g.AddConditionalEdges(SupervisorNode, routeAfterClassify, pathMap)

	return g, nil
}

// normalizeLabel matches the model's answer to a route label, tolerating
// case, surrounding whitespace, and trailing punctuation.
func normalizeLabel(answer string, labels []string) string {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(answer), ".!\"'`"))
	for _, label := range labels {
		if cleaned == strings.ToLower(label) {
			return label
		}
	}
	return ""
}
