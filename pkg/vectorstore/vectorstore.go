// Package vectorstore provides the document storage and similarity
// search layer behind retrieval tools. Providers register themselves
// under a name and are constructed through New from a Config.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"time"
)

// VectorStore stores embedded documents and answers similarity queries.
type VectorStore interface {
	// Upsert inserts documents, replacing any with the same ID.
	Upsert(ctx context.Context, documents []Document) error

	// Search returns the documents most similar to the query embedding,
	// best match first.
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Get fetches documents by ID. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Close releases any backend resources.
	Close() error
}

// Document is a text chunk with its embedding and optional metadata.
// Metadata keys like "source" feed retrieval snippets and filters.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SearchQuery describes one similarity search.
type SearchQuery struct {
	// Embedding is the query vector.
	Embedding []float32

	// TopK limits how many results come back.
	TopK int

	// Filter restricts candidates by metadata before scoring.
	Filter *MetadataFilter

	// MinScore drops results scoring below the threshold.
	MinScore float32

	// DistanceMetric selects the similarity function; cosine when empty.
	DistanceMetric DistanceMetric
}

// SearchResult pairs a matched document with its similarity score.
// Higher scores are more similar under every supported metric.
type SearchResult struct {
	Document Document
	Score    float32
	Distance float32
}

// MetadataFilter expresses boolean conditions over document metadata.
// Must entries all have to match, Should needs at least one match, and
// MustNot entries exclude.
type MetadataFilter struct {
	Must    map[string]any
	Should  map[string]any
	MustNot map[string]any
}

// DistanceMetric names a similarity function.
type DistanceMetric string

const (
	// DistanceMetricCosine scores in [0, 1] for normalized embeddings.
	DistanceMetricCosine DistanceMetric = "cosine"

	// DistanceMetricEuclidean converts L2 distance to a [0, 1] score.
	DistanceMetricEuclidean DistanceMetric = "euclidean"

	// DistanceMetricDotProduct is unbounded; use with normalized vectors.
	DistanceMetricDotProduct DistanceMetric = "dot_product"
)

const (
	maxMetadataKeyLen = 256
	maxDocumentIDLen  = 512
	maxTopK           = 1000
)

// ValidateDocument rejects documents a backend could not store safely.
func ValidateDocument(doc *Document) error {
	if err := ValidateDocumentID(doc.ID); err != nil {
		return fmt.Errorf("invalid document ID: %w", err)
	}
	if doc.Content == "" {
		return fmt.Errorf("document content cannot be empty")
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("document embedding cannot be empty")
	}
	if i := firstBadFloat(doc.Embedding); i >= 0 {
		return fmt.Errorf("embedding contains invalid value at index %d: %f", i, doc.Embedding[i])
	}
	for key := range doc.Metadata {
		if err := ValidateMetadataKey(key); err != nil {
			return fmt.Errorf("invalid metadata key %q: %w", key, err)
		}
	}
	return nil
}

// ValidateSearchQuery rejects malformed queries before they hit a backend.
func ValidateSearchQuery(query *SearchQuery) error {
	if len(query.Embedding) == 0 {
		return fmt.Errorf("query embedding cannot be empty")
	}
	if i := firstBadFloat(query.Embedding); i >= 0 {
		return fmt.Errorf("query embedding contains invalid value at index %d: %f", i, query.Embedding[i])
	}
	if query.TopK < 1 {
		return fmt.Errorf("TopK must be at least 1, got %d", query.TopK)
	}
	if query.TopK > maxTopK {
		return fmt.Errorf("TopK cannot exceed %d, got %d", maxTopK, query.TopK)
	}

	switch query.DistanceMetric {
	case DistanceMetricCosine, DistanceMetricEuclidean, "":
		// Both score into [0, 1], so MinScore must too.
		if query.MinScore < 0 || query.MinScore > 1 {
			return fmt.Errorf("MinScore must be between 0 and 1, got %f", query.MinScore)
		}
	case DistanceMetricDotProduct:
		if badFloat(query.MinScore) {
			return fmt.Errorf("MinScore contains invalid value: %f", query.MinScore)
		}
	default:
		return fmt.Errorf("invalid distance metric: %s", query.DistanceMetric)
	}
	return nil
}

// ValidateMetadataKey rejects keys that could smuggle operators into a
// backend query (Firestore field paths treat '.' and '$' specially).
func ValidateMetadataKey(key string) error {
	if key == "" {
		return fmt.Errorf("metadata key cannot be empty")
	}
	if len(key) > maxMetadataKeyLen {
		return fmt.Errorf("metadata key too long: maximum %d characters, got %d", maxMetadataKeyLen, len(key))
	}
	for i, r := range key {
		switch {
		case r < 0x20 || r == 0x7F:
			return fmt.Errorf("metadata key contains control character at position %d", i)
		case r == '$' || r == '.':
			return fmt.Errorf("metadata key contains forbidden character '%c' at position %d", r, i)
		}
	}
	return nil
}

// ValidateDocumentID rejects IDs unsafe for path-based backends.
func ValidateDocumentID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(id) > maxDocumentIDLen {
		return fmt.Errorf("document ID too long: maximum %d characters, got %d", maxDocumentIDLen, len(id))
	}
	if id == "." || id == ".." {
		return fmt.Errorf("document ID cannot be '.' or '..'")
	}
	for i, r := range id {
		switch {
		case r < 0x20 || r == 0x7F:
			return fmt.Errorf("document ID contains control character at position %d", i)
		case r == '/' || r == '\\':
			return fmt.Errorf("document ID contains path separator at position %d", i)
		}
	}
	return nil
}

// firstBadFloat returns the index of the first NaN or Inf, or -1.
func firstBadFloat(vec []float32) int {
	for i, v := range vec {
		if badFloat(v) {
			return i
		}
	}
	return -1
}

func badFloat(f float32) bool {
	f64 := float64(f)
	return math.IsNaN(f64) || math.IsInf(f64, 0)
}
