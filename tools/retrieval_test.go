package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgraph-dev/agentgraph/pkg/vectorstore"
	"github.com/agentgraph-dev/agentgraph/pkg/vectorstore/memory"
)

// stubEmbedder returns canned vectors keyed by input text.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int   { return 3 }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func newRetrievalFixture(t *testing.T) vectorstore.VectorStore {
	t.Helper()
	store, err := memory.New(vectorstore.Config{
		Provider:            "memory",
		EmbeddingDimensions: 3,
		DefaultTopK:         10,
	})
	require.NoError(t, err)

	now := time.Now()
	err = store.Upsert(context.Background(), []vectorstore.Document{
		{
			ID:        "doc-go",
			Content:   "Go is a statically typed language designed at Google.",
			Embedding: []float32{1, 0, 0},
			Metadata:  map[string]any{"source": "docs/go.md"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "doc-py",
			Content:   "Python is a dynamically typed scripting language.",
			Embedding: []float32{0, 1, 0},
			Metadata:  map[string]any{"source": "docs/python.md"},
			CreatedAt: now,
			UpdatedAt: now,
		},
	})
	require.NoError(t, err)
	return store
}

func TestRetrievalToolReturnsSnippets(t *testing.T) {
	store := newRetrievalFixture(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"what is go": {1, 0, 0},
	}}

	tool := NewRetrievalTool(store, embedder)
	assert.Equal(t, "search_documents", tool.Name)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "what is go"})
	require.NoError(t, err)
	assert.Contains(t, out, "[1] (score 1.00) docs/go.md")
	assert.Contains(t, out, "Go is a statically typed language")
}

func TestRetrievalToolMinScoreFilters(t *testing.T) {
	store := newRetrievalFixture(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"what is go": {1, 0, 0},
	}}

	tool := NewRetrievalTool(store, embedder, WithMinScore(0.5))
	out, err := tool.Execute(context.Background(), map[string]any{"query": "what is go"})
	require.NoError(t, err)
	assert.Contains(t, out, "doc") // only the Go doc survives the cutoff
	assert.NotContains(t, out, "Python")
	assert.NotContains(t, out, "[2]")
}

func TestRetrievalToolNoResults(t *testing.T) {
	store, err := memory.New(vectorstore.Config{
		Provider:            "memory",
		EmbeddingDimensions: 3,
		DefaultTopK:         10,
	})
	require.NoError(t, err)

	tool := NewRetrievalTool(store, &stubEmbedder{})
	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "No matching documents found.", out)
}

func TestRetrievalToolEmbedError(t *testing.T) {
	store := newRetrievalFixture(t)
	embedder := &stubEmbedder{err: errors.New("quota exceeded")}

	tool := NewRetrievalTool(store, embedder)
	_, err := tool.Execute(context.Background(), map[string]any{"query": "what is go"})
	assert.ErrorContains(t, err, "failed to embed query")
}

func TestRetrievalToolMissingQuery(t *testing.T) {
	store := newRetrievalFixture(t)
	tool := NewRetrievalTool(store, &stubEmbedder{})

	_, err := tool.Execute(context.Background(), map[string]any{})
	var argErr *ArgError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "query", argErr.Arg)
}

func TestRetrievalToolOptions(t *testing.T) {
	store := newRetrievalFixture(t)
	tool := NewRetrievalTool(store, &stubEmbedder{},
		WithRetrievalName("kb_search"),
		WithRetrievalDescription("Search the wiki"),
		WithTopK(1),
	)
	assert.Equal(t, "kb_search", tool.Name)
	assert.Equal(t, "Search the wiki", tool.Description)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "unmatched"})
	require.NoError(t, err)
	assert.NotContains(t, out, "[2]")
}
