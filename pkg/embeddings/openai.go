package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbeddings implements EmbeddingService using OpenAI's embeddings API.
type OpenAIEmbeddings struct {
	client     *openai.Client
	model      string
	dimensions int
}

func init() {
	Register("openai", NewOpenAI)
}

// NewOpenAI creates a new OpenAIEmbeddings instance.
func NewOpenAI(config Config) (EmbeddingService, error) {
	if config.OpenAI == nil {
		return nil, fmt.Errorf("openai configuration is required")
	}

	// Apply defaults before validation
	if config.OpenAI.Model == "" {
		config.OpenAI.Model = "text-embedding-3-small"
	}
	if config.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	// Determine dimensions based on model
	dims := modelDimensions(config.OpenAI.Model)
	if config.OpenAI.Dimensions > 0 {
		// Custom dimensions are only supported for text-embedding-3 models
		if !isTextEmbedding3Model(config.OpenAI.Model) {
			return nil, fmt.Errorf("custom dimensions only supported for text-embedding-3 models, got model: %s", config.OpenAI.Model)
		}
		dims = config.OpenAI.Dimensions
	}

	clientConfig := openai.DefaultConfig(config.OpenAI.APIKey)
	if config.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = config.OpenAI.BaseURL
	}

	return &OpenAIEmbeddings{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      config.OpenAI.Model,
		dimensions: dims,
	}, nil
}

// Embed generates embeddings for a single text.
func (o *OpenAIEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	embeddings, err := o.createEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts.
func (o *OpenAIEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	return o.createEmbeddings(ctx, texts)
}

// Dimensions returns the dimension size of the embeddings.
func (o *OpenAIEmbeddings) Dimensions() int {
	return o.dimensions
}

// ModelName returns the name of the embedding model.
func (o *OpenAIEmbeddings) ModelName() string {
	return o.model
}

// Close closes any resources held by the service.
func (o *OpenAIEmbeddings) Close() error {
	return nil
}

func (o *OpenAIEmbeddings) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	}
	// Only request reduced dimensions where the API supports it
	if isTextEmbedding3Model(o.model) && o.dimensions > 0 && o.dimensions != modelDimensions(o.model) {
		req.Dimensions = o.dimensions
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Responses carry an index; order by it rather than trusting slice order
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index out of bounds: %d (expected 0-%d)", item.Index, len(embeddings)-1)
		}
		if embeddings[item.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index: %d", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	for i := range embeddings {
		if embeddings[i] == nil {
			return nil, fmt.Errorf("missing embedding at index %d", i)
		}
	}
	return embeddings, nil
}

// modelDimensions returns the default dimensions for OpenAI models.
func modelDimensions(model string) int {
	switch model {
	case "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	default:
		// Default to 1536 for unknown models
		return 1536
	}
}

// isTextEmbedding3Model checks if the model is a text-embedding-3 model.
// Only these models support custom dimensions.
func isTextEmbedding3Model(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}
