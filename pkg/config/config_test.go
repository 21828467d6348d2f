package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_FileSizeLimit(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a large file (> 1MB)
	largeFile := filepath.Join(tmpDir, "large.yaml")
	data := strings.Repeat("x: value\n", 200000) // ~1.6MB
	err := os.WriteFile(largeFile, []byte(data), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err = LoadConfig(largeFile)
	if err == nil {
		t.Error("expected error for large file")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected 'too large' error, got: %v", err)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()

	validConfig := `
provider: openai
default_model: gpt-4o
openai_key: test-key
max_tokens: 100
temperature: 0.5
checkpoint:
  backend: sqlite
  path: /tmp/agentgraph.db
`

	validFile := filepath.Join(tmpDir, "valid.yaml")
	err := os.WriteFile(validFile, []byte(validConfig), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := LoadConfig(validFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("expected model 'gpt-4o', got %s", cfg.DefaultModel)
	}
	if cfg.Checkpoint.Backend != "sqlite" {
		t.Errorf("checkpoint backend = %s", cfg.Checkpoint.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	invalidYAML := `
default_model: gpt-4o
invalid yaml here: [[[
`

	invalidFile := filepath.Join(tmpDir, "invalid.yaml")
	err := os.WriteFile(invalidFile, []byte(invalidYAML), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err = LoadConfig(invalidFile)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	minimal := filepath.Join(tmpDir, "minimal.yaml")
	if err := os.WriteFile(minimal, []byte("default_model: gpt-4o\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := LoadConfig(minimal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("default provider = %s", cfg.Provider)
	}
	if cfg.MaxTokens != 1000 {
		t.Errorf("default max_tokens = %d", cfg.MaxTokens)
	}
	if cfg.Checkpoint.Backend != "memory" {
		t.Errorf("default checkpoint backend = %s", cfg.Checkpoint.Backend)
	}
	if cfg.Server.GRPCAddr != ":50051" {
		t.Errorf("default grpc addr = %s", cfg.Server.GRPCAddr)
	}
}

func TestLoadConfig_GraphDefinitions(t *testing.T) {
	tmpDir := t.TempDir()

	content := `
default_model: gpt-4o
graphs:
  pipeline:
    entry: fetch
    finish: [summarize]
    nodes:
      - name: fetch
        kind: passthrough
      - name: summarize
        kind: llm
        options:
          prompt: "Summarize the input."
    edges:
      - from: fetch
        to: summarize
`

	file := filepath.Join(tmpDir, "graphs.yaml")
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g, ok := cfg.Graphs["pipeline"]
	if !ok {
		t.Fatal("graph 'pipeline' missing")
	}
	if g.Entry != "fetch" {
		t.Errorf("entry = %s", g.Entry)
	}
	if len(g.Nodes) != 2 || g.Nodes[1].Kind != "llm" {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if len(g.Edges) != 1 || g.Edges[0].To != "summarize" {
		t.Errorf("edges = %+v", g.Edges)
	}
	if g.Nodes[1].Options["prompt"] != "Summarize the input." {
		t.Errorf("options = %+v", g.Nodes[1].Options)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	bad := Default()
	bad.Provider = "carrier-pigeon"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}

	bad = Default()
	bad.Checkpoint.Backend = "sqlite"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for sqlite without path")
	}

	bad = Default()
	bad.Schedules = []ScheduleConfig{{Name: "daily"}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for schedule without cron")
	}
}
