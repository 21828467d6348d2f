package main

import (
	"context"
	"fmt"
	"time"

	"github.com/agentgraph-dev/agentgraph/agent"
	"github.com/agentgraph-dev/agentgraph/checkpoint"
	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/pkg/config"
	"github.com/agentgraph-dev/agentgraph/state"
	"github.com/agentgraph-dev/agentgraph/tools"
)

// loadConfig reads the --config file, or falls back to defaults plus
// environment credentials.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return cfg, nil
}

// buildProvider creates the configured LLM provider through the registry.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	providerCfg := map[string]any{}
	switch cfg.Provider {
	case "openai":
		providerCfg["api_key"] = cfg.OpenAIKey
	case "gemini":
		providerCfg["api_key"] = cfg.GeminiKey
		providerCfg["project_id"] = cfg.GCPProject
		providerCfg["location"] = cfg.GCPRegion
	case "bedrock":
		providerCfg["region"] = cfg.AWSRegion
	}

	p, err := llm.Create(cfg.Provider, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("creating provider %q: %w", cfg.Provider, err)
	}
	return llm.NewInstrumentedProvider(p, nil), nil
}

// buildStore creates the configured checkpoint backend.
func buildStore(cfg *config.Config) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "", "memory":
		return checkpoint.NewMemoryStore(), nil
	case "file":
		return checkpoint.NewFileStore(cfg.Checkpoint.Path)
	case "sqlite":
		path := cfg.Checkpoint.Path
		if path == "" {
			path = "agentgraph.db"
		}
		return checkpoint.NewSQLiteStore(path)
	case "redis":
		return checkpoint.NewRedisStore(checkpoint.RedisConfig{
			Addr:     cfg.Checkpoint.RedisAddr,
			Password: cfg.Checkpoint.RedisPassword,
			DB:       cfg.Checkpoint.RedisDB,
			TTL:      time.Duration(cfg.Checkpoint.TTLSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}

// defaultNodeRegistry resolves the node kinds declarative graphs may use:
// "model" sends the conversation to the provider, "tool" runs a named
// builtin tool against the state's input.
func defaultNodeRegistry(p llm.Provider, cfg *config.Config) *graph.NodeRegistry {
	registry := graph.NewNodeRegistry()

	registry.Register("model", func(name string, options map[string]any) (graph.NodeFunc, error) {
		systemPrompt, _ := options["system_prompt"].(string)
		model, _ := options["model"].(string)
		if model == "" {
			model = cfg.DefaultModel
		}
		return func(ctx context.Context, s state.State) (state.State, error) {
			history, err := state.Messages(s)
			if err != nil {
				return nil, err
			}
			if len(history) == 0 {
				if input := s.GetString("input"); input != "" {
					history = []llm.Message{llm.UserMessage(input)}
				}
			}
			msgs := history
			if systemPrompt != "" {
				msgs = append([]llm.Message{llm.SystemMessage(systemPrompt)}, history...)
			}
			resp, err := p.CreateCompletion(ctx, llm.CompletionRequest{
				Messages:    msgs,
				Model:       model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			})
			if err != nil {
				return nil, err
			}
			update := state.AppendMessages(resp.Message())
			update["output"] = resp.Content
			return update, nil
		}, nil
	})

	registry.Register("tool", func(name string, options map[string]any) (graph.NodeFunc, error) {
		toolName, _ := options["tool"].(string)
		tool, ok := tools.Get(toolName)
		if !ok {
			return nil, fmt.Errorf("node %q references unknown tool %q", name, toolName)
		}
		return func(ctx context.Context, s state.State) (state.State, error) {
			args, _ := s.Get("args")
			argMap, _ := args.(map[string]any)
			result, err := tool.Execute(ctx, argMap)
			if err != nil {
				return nil, err
			}
			return state.State{"output": result}, nil
		}, nil
	})

	return registry
}

// buildGraph compiles the requested graph: the starter agent workflow by
// default, or a declarative graph named in the config.
func buildGraph(cfg *config.Config, graphName string, store checkpoint.Store) (*graph.CompiledGraph, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	if graphName == "" || graphName == agent.GraphName {
		opts := []agent.Option{agent.WithProvider(provider)}
		if store != nil {
			opts = append(opts, agent.WithCheckpointer(store))
		}
		if cfg.DefaultModel != "" {
			opts = append(opts, agent.WithModel(cfg.DefaultModel))
		}
		if cfg.Temperature != 0 {
			opts = append(opts, agent.WithTemperature(cfg.Temperature))
		}
		return agent.BuildGraph(opts...)
	}

	graphCfg, ok := cfg.Graphs[graphName]
	if !ok {
		return nil, fmt.Errorf("graph %q not defined in config", graphName)
	}

	g, err := graph.FromConfig(&graphCfg, defaultNodeRegistry(provider, cfg))
	if err != nil {
		return nil, err
	}

	compileOpts := []graph.CompileOption{graph.WithName(graphName)}
	if store != nil {
		compileOpts = append(compileOpts, graph.WithCheckpointer(store))
	}
	if graphCfg.MaxSteps > 0 {
		compileOpts = append(compileOpts, graph.WithDefaultMaxSteps(graphCfg.MaxSteps))
	}
	return g.Compile(compileOpts...)
}
