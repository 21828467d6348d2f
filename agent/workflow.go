package agent

import (
	"fmt"
	"os"

	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/prebuilt"
	"github.com/agentgraph-dev/agentgraph/tools"
)

// GraphName identifies the default workflow in logs, traces, and metrics.
const GraphName = "agent"

// Option customizes the workflow BuildGraph assembles.
type Option func(*options)

type options struct {
	provider     llm.Provider
	tools        []tools.Tool
	checkpointer checkpoint.Store
	maxSteps     int
	systemPrompt string
	model        string
	temperature  float64
}

// WithProvider sets the LLM provider. Without it, BuildGraph creates one
// from the registry using AGENTGRAPH_PROVIDER (default "openai").
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithTools replaces the default tool set. Passing no tools gives the
// model a bare conversation loop.
func WithTools(ts ...tools.Tool) Option {
	return func(o *options) { o.tools = ts }
}

// WithCheckpointer persists state after every step and lets runs resume
// by thread ID.
func WithCheckpointer(store checkpoint.Store) Option {
	return func(o *options) { o.checkpointer = store }
}

// WithMaxSteps caps the supersteps per run.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithSystemPrompt sets the system prompt sent ahead of the conversation.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithModel sets the model name passed to the provider.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *options) { o.temperature = temp }
}

// BuildGraph assembles and compiles the agent's workflow: a model node
// and a tools node joined in the ReAct loop, entered at the model node,
// finishing once the model answers without requesting a tool.
//
// The defaults are starter scaffolding. Replace the provider, tools, and
// prompts through options, or build a different graph entirely with the
// graph package; nothing else in the framework assumes this shape.
func BuildGraph(opts ...Option) (*graph.CompiledGraph, error) {
	o := options{
		tools: []tools.Tool{tools.Calculator(), tools.CurrentTime()},
	}
	for _, opt := range opts {
		opt(&o)
	}

	provider := o.provider
	if provider == nil {
		name := os.Getenv("AGENTGRAPH_PROVIDER")
		if name == "" {
			name = "openai"
		}
		created, err := llm.Create(name, nil)
		if err != nil {
			return nil, fmt.Errorf("creating provider %q: %w", name, err)
		}
		provider = created
	}

	var prebuiltOpts []prebuilt.Option
	if o.systemPrompt != "" {
		prebuiltOpts = append(prebuiltOpts, prebuilt.WithSystemPrompt(o.systemPrompt))
	}
	if o.model != "" {
		prebuiltOpts = append(prebuiltOpts, prebuilt.WithModel(o.model))
	}
	if o.temperature != 0 {
		prebuiltOpts = append(prebuiltOpts, prebuilt.WithTemperature(o.temperature))
	}

	g, err := prebuilt.CreateReactAgent(provider, o.tools, prebuiltOpts...)
	if err != nil {
		return nil, fmt.Errorf("building agent workflow: %w", err)
	}

	compileOpts := []graph.CompileOption{graph.WithName(GraphName)}
	if o.checkpointer != nil {
		compileOpts = append(compileOpts, graph.WithCheckpointer(o.checkpointer))
	}
	if o.maxSteps > 0 {
		compileOpts = append(compileOpts, graph.WithDefaultMaxSteps(o.maxSteps))
	}

	return g.Compile(compileOpts...)
}
