package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentgraph-dev/agentgraph/pkg/embeddings"
	"github.com/agentgraph-dev/agentgraph/pkg/vectorstore"
)

const defaultRetrievalTopK = 4

// RetrievalOption configures the retrieval tool.
type RetrievalOption func(*retrievalConfig)

type retrievalConfig struct {
	name        string
	description string
	topK        int
	minScore    float32
}

// WithRetrievalName overrides the tool name.
func WithRetrievalName(name string) RetrievalOption {
	return func(c *retrievalConfig) { c.name = name }
}

// WithRetrievalDescription overrides the description shown to the model.
func WithRetrievalDescription(desc string) RetrievalOption {
	return func(c *retrievalConfig) { c.description = desc }
}

// WithTopK sets how many documents a search returns.
func WithTopK(k int) RetrievalOption {
	return func(c *retrievalConfig) { c.topK = k }
}

// WithMinScore drops results scoring below the threshold.
func WithMinScore(score float32) RetrievalOption {
	return func(c *retrievalConfig) { c.minScore = score }
}

// NewRetrievalTool builds a tool that embeds the query, searches the
// vector store and returns the matching documents as numbered snippets.
func NewRetrievalTool(store vectorstore.VectorStore, embedder embeddings.EmbeddingService, opts ...RetrievalOption) Tool {
	cfg := retrievalConfig{
		name:        "search_documents",
		description: "Search the knowledge base for documents relevant to a query. Use this to look up facts before answering.",
		topK:        defaultRetrievalTopK,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return Tool{
		Name:        cfg.name,
		Description: cfg.description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural language search query",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := StringArg(args, "query")
			if err != nil {
				return "", err
			}

			embedding, err := embedder.Embed(ctx, query)
			if err != nil {
				return "", fmt.Errorf("failed to embed query: %w", err)
			}

			results, err := store.Search(ctx, vectorstore.SearchQuery{
				Embedding: embedding,
				TopK:      cfg.topK,
				MinScore:  cfg.minScore,
			})
			if err != nil {
				return "", fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				return "No matching documents found.", nil
			}

			return formatSnippets(results), nil
		},
	}
}

func formatSnippets(results []vectorstore.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (score %.2f)", i+1, r.Score)
		if src, ok := r.Document.Metadata["source"].(string); ok && src != "" {
			fmt.Fprintf(&b, " %s", src)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(r.Document.Content))
	}
	return b.String()
}
