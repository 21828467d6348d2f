// Package config loads agentgraph configuration from YAML with environment
// fallbacks for credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Provider selects the default LLM backend: openai, gemini, bedrock.
	Provider string `yaml:"provider"`

	// API keys and cloud settings
	OpenAIKey  string `yaml:"openai_key"`
	GeminiKey  string `yaml:"gemini_key"`
	GCPProject string `yaml:"gcp_project"`
	GCPRegion  string `yaml:"gcp_region"`
	AWSRegion  string `yaml:"aws_region"`

	// Model Configuration
	DefaultModel   string  `yaml:"default_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`

	// Checkpoint store
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Vector Store
	VectorProvider string            `yaml:"vector_provider"` // memory, firestore
	VectorConfig   map[string]string `yaml:"vector_config"`

	// Declarative graph definitions
	Graphs map[string]GraphConfig `yaml:"graphs"`

	// Scheduled runs
	Schedules []ScheduleConfig `yaml:"schedules"`

	// Server Configuration
	Server ServerConfig `yaml:"server"`
}

// CheckpointConfig selects and configures the checkpoint backend.
type CheckpointConfig struct {
	// Backend is one of: memory, file, sqlite, redis. Empty means memory.
	Backend string `yaml:"backend"`
	// Path is the directory for the file backend or the database file for
	// sqlite.
	Path string `yaml:"path"`
	// Redis connection settings, used when Backend is redis.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// TTLSeconds expires redis checkpoints (0 = keep forever).
	TTLSeconds int `yaml:"ttl_seconds"`
}

// GraphConfig declares a graph: named nodes built by a registry, static
// edges, an entry node, and finish nodes.
type GraphConfig struct {
	Nodes    []NodeConfig `yaml:"nodes"`
	Edges    []EdgeConfig `yaml:"edges"`
	Entry    string       `yaml:"entry"`
	Finish   []string     `yaml:"finish"`
	MaxSteps int          `yaml:"max_steps"`
}

// NodeConfig declares one node of a declarative graph.
type NodeConfig struct {
	Name string `yaml:"name"`
	// Kind selects the factory in the node registry.
	Kind    string         `yaml:"kind"`
	Options map[string]any `yaml:"options"`
}

// EdgeConfig declares one static edge.
type EdgeConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ScheduleConfig declares one recurring graph run.
type ScheduleConfig struct {
	Name string `yaml:"name"`
	// Cron is a standard five-field cron expression.
	Cron  string `yaml:"cron"`
	Graph string `yaml:"graph"`
	// ThreadPrefix namespaces the thread IDs of scheduled runs.
	ThreadPrefix string         `yaml:"thread_prefix"`
	Input        map[string]any `yaml:"input"`
}

// ServerConfig holds the serving addresses.
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// maxConfigSize bounds config files; anything larger is a mistake.
const maxConfigSize = 1 << 20

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (limit %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// Default returns a configuration built purely from defaults and the
// environment, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.Checkpoint.Backend == "" {
		c.Checkpoint.Backend = "memory"
	}
	if c.VectorProvider == "" {
		c.VectorProvider = "memory"
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
}

// applyEnv fills credentials from the environment when the file left them
// empty.
func (c *Config) applyEnv() {
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GeminiKey == "" {
		c.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.GCPProject == "" {
		c.GCPProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if c.GCPRegion == "" {
		c.GCPRegion = os.Getenv("VERTEX_AI_LOCATION")
	}
	if c.AWSRegion == "" {
		c.AWSRegion = os.Getenv("AWS_REGION")
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "gemini", "bedrock", "mock":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Checkpoint.Backend {
	case "memory", "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Backend == "sqlite" && c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint backend sqlite requires a path")
	}
	if c.Checkpoint.Backend == "redis" && c.Checkpoint.RedisAddr == "" {
		return fmt.Errorf("checkpoint backend redis requires redis_addr")
	}

	for name, g := range c.Graphs {
		if g.Entry == "" {
			return fmt.Errorf("graph %q has no entry node", name)
		}
		if len(g.Nodes) == 0 {
			return fmt.Errorf("graph %q has no nodes", name)
		}
	}

	for _, s := range c.Schedules {
		if s.Cron == "" {
			return fmt.Errorf("schedule %q has no cron expression", s.Name)
		}
		if s.Graph == "" {
			return fmt.Errorf("schedule %q names no graph", s.Name)
		}
	}

	return nil
}
