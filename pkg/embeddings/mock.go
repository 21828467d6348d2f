package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
)

// MockEmbeddings is a deterministic embedder for tests and offline
// development. The same text always produces the same unit vector, so
// similarity comparisons behave consistently across runs.
type MockEmbeddings struct {
	dimensions int
}

func init() {
	Register("mock", NewMock)
}

// NewMock creates a MockEmbeddings instance.
func NewMock(config Config) (EmbeddingService, error) {
	dims := 384
	if config.Mock != nil && config.Mock.Dimensions > 0 {
		dims = config.Mock.Dimensions
	}
	return &MockEmbeddings{dimensions: dims}, nil
}

// Embed generates a deterministic unit vector derived from the text.
func (m *MockEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, m.dimensions)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (m *MockEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text at index %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the dimension size of the embeddings.
func (m *MockEmbeddings) Dimensions() int {
	return m.dimensions
}

// ModelName returns the name of the embedding model.
func (m *MockEmbeddings) ModelName() string {
	return "mock"
}

// Close closes any resources held by the service.
func (m *MockEmbeddings) Close() error {
	return nil
}
