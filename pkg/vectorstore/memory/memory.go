// Package memory provides an in-process vector store backed by a map.
// It is the default backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/agentgraph-dev/agentgraph/pkg/vectorstore"
)

const defaultMaxDocuments = 10000

func init() {
	vectorstore.Register("memory", New)
}

// Store keeps documents in a map and scores queries by brute force.
// Fine for a few thousand documents; beyond that, use a real backend.
type Store struct {
	mu   sync.RWMutex
	docs map[string]vectorstore.Document

	dims          int
	maxDocs       int
	defaultTopK   int
	defaultMetric vectorstore.DistanceMetric
}

// New creates a Store from the provided configuration.
func New(config vectorstore.Config) (vectorstore.VectorStore, error) {
	if config.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", config.EmbeddingDimensions)
	}

	maxDocs := defaultMaxDocuments
	if config.Memory != nil && config.Memory.MaxDocuments > 0 {
		maxDocs = config.Memory.MaxDocuments
	}

	return &Store{
		docs:          make(map[string]vectorstore.Document),
		dims:          config.EmbeddingDimensions,
		maxDocs:       maxDocs,
		defaultTopK:   config.DefaultTopK,
		defaultMetric: vectorstore.DistanceMetric(config.DefaultDistanceMetric),
	}, nil
}

// Upsert inserts or replaces documents. The batch is validated as a
// whole before anything is written.
func (s *Store) Upsert(ctx context.Context, documents []vectorstore.Document) error {
	if len(documents) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i := range documents {
		if err := vectorstore.ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
		if len(documents[i].Embedding) != s.dims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				documents[i].ID, s.dims, len(documents[i].Embedding))
		}
		if _, exists := s.docs[documents[i].ID]; !exists {
			added++
		}
	}

	if len(s.docs)+added > s.maxDocs {
		return fmt.Errorf("would exceed max documents limit: %d (current: %d, adding: %d)",
			s.maxDocs, len(s.docs), added)
	}

	for _, doc := range documents {
		s.docs[doc.ID] = cloneDocument(doc)
	}
	return nil
}

// Search scores every stored document against the query and returns the
// top matches, best first.
func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if query.TopK == 0 {
		query.TopK = s.defaultTopK
	}
	if query.DistanceMetric == "" {
		query.DistanceMetric = s.defaultMetric
	}
	if err := vectorstore.ValidateSearchQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid search query: %w", err)
	}
	if len(query.Embedding) != s.dims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			s.dims, len(query.Embedding))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []vectorstore.SearchResult
	for _, doc := range s.docs {
		if query.Filter != nil && !matchesFilter(doc, query.Filter) {
			continue
		}
		sc := score(query.Embedding, doc.Embedding, query.DistanceMetric)
		if query.MinScore > 0 && sc < query.MinScore {
			continue
		}
		matches = append(matches, vectorstore.SearchResult{Document: doc, Score: sc})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > query.TopK {
		matches = matches[:query.TopK]
	}
	return matches, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

// Get fetches documents by ID. Unknown IDs are skipped.
func (s *Store) Get(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vectorstore.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out = append(out, cloneDocument(doc))
		}
	}
	return out, nil
}

// Close implements vectorstore.VectorStore. Nothing to release.
func (s *Store) Close() error {
	return nil
}

// Count reports how many documents are stored.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Clear drops every document.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]vectorstore.Document)
}

func matchesFilter(doc vectorstore.Document, filter *vectorstore.MetadataFilter) bool {
	for key, want := range filter.Must {
		if got, ok := doc.Metadata[key]; !ok || got != want {
			return false
		}
	}

	if len(filter.Should) > 0 {
		hit := false
		for key, want := range filter.Should {
			if got, ok := doc.Metadata[key]; ok && got == want {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for key, reject := range filter.MustNot {
		if got, ok := doc.Metadata[key]; ok && got == reject {
			return false
		}
	}
	return true
}

func score(query, doc []float32, metric vectorstore.DistanceMetric) float32 {
	switch metric {
	case vectorstore.DistanceMetricDotProduct:
		return dot(query, doc)
	case vectorstore.DistanceMetricEuclidean:
		// Map distance into (0, 1] so that closer means higher.
		return 1.0 / (1.0 + euclidean(query, doc))
	default:
		return cosine(query, doc)
	}
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProd, normA, normB float64
	for i := range a {
		dotProd += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dotProd / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func euclidean(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// cloneDocument copies the embedding and metadata so callers cannot
// mutate stored documents through retained slices or maps.
func cloneDocument(doc vectorstore.Document) vectorstore.Document {
	out := doc
	out.Embedding = append([]float32(nil), doc.Embedding...)
	if doc.Metadata != nil {
		out.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
