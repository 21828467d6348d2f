package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid document",
			doc: &Document{
				ID:        "doc1",
				Content:   "test content",
				Embedding: []float32{0.1, 0.2, 0.3},
				Metadata:  map[string]interface{}{"source": "test"},
			},
			wantErr: false,
		},
		{
			name:    "empty ID",
			doc:     &Document{Content: "test content", Embedding: []float32{0.1}},
			wantErr: true,
			errMsg:  "document ID cannot be empty",
		},
		{
			name:    "empty content",
			doc:     &Document{ID: "doc1", Embedding: []float32{0.1}},
			wantErr: true,
			errMsg:  "document content cannot be empty",
		},
		{
			name:    "nil embedding",
			doc:     &Document{ID: "doc1", Content: "test content"},
			wantErr: true,
			errMsg:  "document embedding cannot be empty",
		},
		{
			name: "NaN in embedding",
			doc: &Document{
				ID:        "doc1",
				Content:   "test content",
				Embedding: []float32{0.1, float32(math.NaN()), 0.3},
			},
			wantErr: true,
			errMsg:  "embedding contains invalid value at index 1",
		},
		{
			name: "Inf in embedding",
			doc: &Document{
				ID:        "doc1",
				Content:   "test content",
				Embedding: []float32{float32(math.Inf(-1)), 0.2},
			},
			wantErr: true,
			errMsg:  "embedding contains invalid value at index 0",
		},
		{
			name: "forbidden metadata key",
			doc: &Document{
				ID:        "doc1",
				Content:   "test content",
				Embedding: []float32{0.1},
				Metadata:  map[string]interface{}{"a.b": "value"},
			},
			wantErr: true,
			errMsg:  "invalid metadata key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid query",
			query: &SearchQuery{
				Embedding:      []float32{0.1, 0.2, 0.3},
				TopK:           10,
				MinScore:       0.5,
				DistanceMetric: DistanceMetricCosine,
			},
			wantErr: false,
		},
		{
			name:    "nil embedding",
			query:   &SearchQuery{TopK: 10},
			wantErr: true,
			errMsg:  "query embedding cannot be empty",
		},
		{
			name:    "TopK less than 1",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 0},
			wantErr: true,
			errMsg:  "TopK must be at least 1",
		},
		{
			name:    "TopK exceeds max",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 1001},
			wantErr: true,
			errMsg:  "TopK cannot exceed 1000",
		},
		{
			name:    "MinScore negative",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 10, MinScore: -0.1},
			wantErr: true,
			errMsg:  "MinScore must be between 0 and 1",
		},
		{
			name:    "MinScore exceeds 1",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 10, MinScore: 1.5},
			wantErr: true,
			errMsg:  "MinScore must be between 0 and 1",
		},
		{
			name: "dot product MinScore unbounded",
			query: &SearchQuery{
				Embedding:      []float32{0.1},
				TopK:           10,
				MinScore:       42,
				DistanceMetric: DistanceMetricDotProduct,
			},
			wantErr: false,
		},
		{
			name:    "invalid distance metric",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 10, DistanceMetric: "manhattan"},
			wantErr: true,
			errMsg:  "invalid distance metric",
		},
		{
			name:    "empty distance metric allowed",
			query:   &SearchQuery{Embedding: []float32{0.1}, TopK: 10},
			wantErr: false,
		},
		{
			name: "valid query with filter",
			query: &SearchQuery{
				Embedding: []float32{0.1},
				TopK:      10,
				Filter:    &MetadataFilter{Must: map[string]interface{}{"source": "test"}},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchQuery(tt.query)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateDocumentID(t *testing.T) {
	assert.NoError(t, ValidateDocumentID("doc-1_a"))
	assert.Error(t, ValidateDocumentID(""))
	assert.Error(t, ValidateDocumentID(".."))
	assert.Error(t, ValidateDocumentID("a/b"))
	assert.Error(t, ValidateDocumentID("a\\b"))
	assert.Error(t, ValidateDocumentID("bad\x00id"))
}

func TestValidateMetadataKey(t *testing.T) {
	assert.NoError(t, ValidateMetadataKey("source"))
	assert.Error(t, ValidateMetadataKey(""))
	assert.Error(t, ValidateMetadataKey("$where"))
	assert.Error(t, ValidateMetadataKey("a.b"))
	assert.Error(t, ValidateMetadataKey("bad\x01key"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid memory config",
			config: Config{Provider: "memory", EmbeddingDimensions: 768},
		},
		{
			name: "valid firestore config",
			config: Config{
				Provider:            "firestore",
				EmbeddingDimensions: 768,
				Firestore:           &FirestoreConfig{ProjectID: "proj", Collection: "docs"},
			},
		},
		{
			name:    "missing provider",
			config:  Config{EmbeddingDimensions: 768},
			wantErr: "provider must be specified",
		},
		{
			name:    "bad dimensions",
			config:  Config{Provider: "memory"},
			wantErr: "embedding_dimensions must be between",
		},
		{
			name:    "firestore without settings",
			config:  Config{Provider: "firestore", EmbeddingDimensions: 768},
			wantErr: "firestore configuration is required",
		},
		{
			name: "firestore missing collection",
			config: Config{
				Provider:            "firestore",
				EmbeddingDimensions: 768,
				Firestore:           &FirestoreConfig{ProjectID: "proj"},
			},
			wantErr: "firestore collection is required",
		},
		{
			name:    "unknown provider",
			config:  Config{Provider: "qdrant", EmbeddingDimensions: 768},
			wantErr: "unsupported provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	config := Config{Provider: "memory", EmbeddingDimensions: 768}
	require.NoError(t, config.Validate())
	assert.Equal(t, 10, config.DefaultTopK)
	assert.Equal(t, string(DistanceMetricCosine), config.DefaultDistanceMetric)
	require.NotNil(t, config.Memory)
	assert.Equal(t, 10000, config.Memory.MaxDocuments)
}

func TestRegistry(t *testing.T) {
	Register("fake", func(config Config) (VectorStore, error) {
		return nil, nil
	})

	assert.Contains(t, Providers(), "fake")

	assert.Panics(t, func() {
		Register("fake", func(config Config) (VectorStore, error) { return nil, nil })
	})
	assert.Panics(t, func() { Register("nil-factory", nil) })

	_, err := New(Config{Provider: "nope", EmbeddingDimensions: 3})
	assert.ErrorContains(t, err, "unsupported provider")
}

func BenchmarkValidateDocument(b *testing.B) {
	doc := &Document{
		ID:        "doc1",
		Content:   "test content",
		Embedding: make([]float32, 768),
		Metadata:  map[string]interface{}{"source": "test"},
	}
	for i := range doc.Embedding {
		doc.Embedding[i] = float32(i) * 0.001
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateDocument(doc)
	}
}
