// Package firestore provides a vector store backed by Google Cloud
// Firestore. Documents live in a single collection; similarity scoring
// happens client-side after the candidate set is fetched, so metadata
// filters should be used to keep candidate sets small.
//
// Firestore has a 500 operations per batch limit; writes go through a
// BulkWriter which handles batching and retries internally.
package firestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agentgraph-dev/agentgraph/pkg/vectorstore"
)

// Store implements vectorstore.VectorStore on a Firestore collection.
type Store struct {
	client        *firestore.Client
	collection    string
	embeddingDims int
	defaultTopK   int
	defaultMetric string
}

func init() {
	vectorstore.Register("firestore", New)
}

// New creates a Store from the provided configuration. The Firestore
// client dials lazily, so construction succeeds without network access.
func New(config vectorstore.Config) (vectorstore.VectorStore, error) {
	return NewStore(context.Background(), config)
}

// NewStore creates a Store using ctx for client construction.
func NewStore(ctx context.Context, config vectorstore.Config) (vectorstore.VectorStore, error) {
	if config.Firestore == nil {
		return nil, fmt.Errorf("firestore configuration is required")
	}
	if config.Firestore.ProjectID == "" {
		return nil, fmt.Errorf("firestore project_id is required")
	}
	if config.Firestore.Collection == "" {
		return nil, fmt.Errorf("firestore collection is required")
	}
	if config.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", config.EmbeddingDimensions)
	}

	var opts []option.ClientOption
	if config.Firestore.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.Firestore.CredentialsFile))
	}

	var client *firestore.Client
	var err error
	if config.Firestore.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, config.Firestore.ProjectID, config.Firestore.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, config.Firestore.ProjectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	topK := config.DefaultTopK
	if topK == 0 {
		topK = 10
	}

	return &Store{
		client:        client,
		collection:    config.Firestore.Collection,
		embeddingDims: config.EmbeddingDimensions,
		defaultTopK:   topK,
		defaultMetric: config.DefaultDistanceMetric,
	}, nil
}

// firestoreDocument is the wire representation of a document.
// Firestore stores numeric arrays as float64, so embeddings are
// widened on write and narrowed on read.
type firestoreDocument struct {
	ID        string                 `firestore:"id"`
	Content   string                 `firestore:"content"`
	Embedding []float64              `firestore:"embedding"`
	Metadata  map[string]interface{} `firestore:"metadata,omitempty"`
	CreatedAt time.Time              `firestore:"created_at"`
	UpdatedAt time.Time              `firestore:"updated_at"`
}

// Upsert inserts or updates documents with embeddings.
func (s *Store) Upsert(ctx context.Context, documents []vectorstore.Document) error {
	if len(documents) == 0 {
		return nil
	}

	for i := range documents {
		if err := vectorstore.ValidateDocument(&documents[i]); err != nil {
			return fmt.Errorf("invalid document at index %d: %w", i, err)
		}
		if len(documents[i].Embedding) != s.embeddingDims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				documents[i].ID, s.embeddingDims, len(documents[i].Embedding))
		}
	}

	bw := s.client.BulkWriter(ctx)
	now := time.Now()
	for _, doc := range documents {
		fsDoc := toFirestoreDoc(doc, now)
		ref := s.client.Collection(s.collection).Doc(doc.ID)
		if _, err := bw.Set(ref, fsDoc); err != nil {
			bw.End()
			return fmt.Errorf("failed to queue document %s: %w", doc.ID, err)
		}
	}
	bw.End()
	return nil
}

// Search fetches candidates and scores them client-side. Must filters
// are pushed down to Firestore; Should and MustNot apply after fetch.
func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if query.TopK == 0 {
		query.TopK = s.defaultTopK
	}
	if query.DistanceMetric == "" {
		query.DistanceMetric = vectorstore.DistanceMetric(s.defaultMetric)
	}
	if err := vectorstore.ValidateSearchQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid search query: %w", err)
	}
	if len(query.Embedding) != s.embeddingDims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			s.embeddingDims, len(query.Embedding))
	}

	q := s.client.Collection(s.collection).Query
	if query.Filter != nil {
		for key, value := range query.Filter.Must {
			q = q.WherePath(firestore.FieldPath{"metadata", key}, "==", value)
		}
	}

	var candidates []vectorstore.SearchResult
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", err)
		}

		var fsDoc firestoreDocument
		if err := snap.DataTo(&fsDoc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", snap.Ref.ID, err)
		}
		doc := fromFirestoreDoc(fsDoc)

		if query.Filter != nil && !matchesFilter(doc, query.Filter) {
			continue
		}

		score := calculateSimilarity(query.Embedding, doc.Embedding, query.DistanceMetric)
		if query.MinScore > 0 && score < query.MinScore {
			continue
		}
		candidates = append(candidates, vectorstore.SearchResult{Document: doc, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > query.TopK {
		candidates = candidates[:query.TopK]
	}
	return candidates, nil
}

// Delete removes documents by their IDs. Missing IDs are not an error.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	for _, id := range ids {
		ref := s.client.Collection(s.collection).Doc(id)
		if _, err := bw.Delete(ref); err != nil {
			bw.End()
			return fmt.Errorf("failed to queue delete for %s: %w", id, err)
		}
	}
	bw.End()
	return nil
}

// Get retrieves documents by their IDs, skipping those that do not exist.
func (s *Store) Get(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	if len(ids) == 0 {
		return []vectorstore.Document{}, nil
	}

	var documents []vectorstore.Document
	for _, id := range ids {
		snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get document %s: %w", id, err)
		}

		var fsDoc firestoreDocument
		if err := snap.DataTo(&fsDoc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		documents = append(documents, fromFirestoreDoc(fsDoc))
	}
	return documents, nil
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

func toFirestoreDoc(doc vectorstore.Document, now time.Time) firestoreDocument {
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return firestoreDocument{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: widenEmbedding(doc.Embedding),
		Metadata:  doc.Metadata,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
}

func fromFirestoreDoc(fsDoc firestoreDocument) vectorstore.Document {
	return vectorstore.Document{
		ID:        fsDoc.ID,
		Content:   fsDoc.Content,
		Embedding: narrowEmbedding(fsDoc.Embedding),
		Metadata:  fsDoc.Metadata,
		CreatedAt: fsDoc.CreatedAt,
		UpdatedAt: fsDoc.UpdatedAt,
	}
}

func widenEmbedding(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func narrowEmbedding(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func matchesFilter(doc vectorstore.Document, filter *vectorstore.MetadataFilter) bool {
	// Must conditions are pushed down to the Firestore query; checking
	// them again here keeps the function correct standalone.
	for key, expected := range filter.Must {
		actual, exists := doc.Metadata[key]
		if !exists || actual != expected {
			return false
		}
	}

	if len(filter.Should) > 0 {
		matched := false
		for key, expected := range filter.Should {
			if actual, exists := doc.Metadata[key]; exists && actual == expected {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for key, rejected := range filter.MustNot {
		if actual, exists := doc.Metadata[key]; exists && actual == rejected {
			return false
		}
	}
	return true
}

func calculateSimilarity(vec1, vec2 []float32, metric vectorstore.DistanceMetric) float32 {
	switch metric {
	case vectorstore.DistanceMetricDotProduct:
		return dotProduct(vec1, vec2)
	case vectorstore.DistanceMetricEuclidean:
		dist := euclideanDistance(vec1, vec2)
		return 1.0 / (1.0 + dist)
	default:
		return cosineSimilarity(vec1, vec2)
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt(normA) * sqrt(normB))
}

func dotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var result float32
	for i := range a {
		result += a[i] * b[i]
	}
	return result
}

func euclideanDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sqrt(sum)
}

func sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
