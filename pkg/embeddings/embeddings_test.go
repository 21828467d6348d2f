package embeddings

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid openai config",
			config: Config{
				Provider: "openai",
				OpenAI: &OpenAIConfig{
					APIKey: "test-key",
					Model:  "text-embedding-3-small",
				},
			},
			wantErr: false,
		},
		{
			name:    "valid mock config",
			config:  Config{Provider: "mock"},
			wantErr: false,
		},
		{
			name:    "empty provider",
			config:  Config{},
			wantErr: true,
			errMsg:  "provider must be specified",
		},
		{
			name:    "openai provider without config",
			config:  Config{Provider: "openai"},
			wantErr: true,
			errMsg:  "openai configuration is required",
		},
		{
			name: "openai without api key",
			config: Config{
				Provider: "openai",
				OpenAI:   &OpenAIConfig{Model: "text-embedding-3-small"},
			},
			wantErr: true,
			errMsg:  "openai api_key is required",
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "cohere"},
			wantErr: true,
			errMsg:  "unsupported provider",
		},
		{
			name: "mock with negative dimensions",
			config: Config{
				Provider: "mock",
				Mock:     &MockConfig{Dimensions: -5},
			},
			wantErr: true,
			errMsg:  "mock dimensions must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOpenAIConfigDefaults(t *testing.T) {
	config := Config{
		Provider: "openai",
		OpenAI:   &OpenAIConfig{APIKey: "test-key"},
	}
	require.NoError(t, config.Validate())
	assert.Equal(t, "text-embedding-3-small", config.OpenAI.Model)
	assert.Equal(t, "https://api.openai.com/v1", config.OpenAI.BaseURL)
}

func TestMockConfigDefaults(t *testing.T) {
	config := Config{Provider: "mock"}
	require.NoError(t, config.Validate())
	require.NotNil(t, config.Mock)
	assert.Equal(t, 384, config.Mock.Dimensions)
}

func TestRegistry(t *testing.T) {
	t.Run("built-in providers registered", func(t *testing.T) {
		assert.True(t, IsRegistered("openai"))
		assert.True(t, IsRegistered("mock"))
		assert.Contains(t, ListProviders(), "openai")
		assert.Contains(t, ListProviders(), "mock")
	})

	t.Run("register nil factory panics", func(t *testing.T) {
		assert.Panics(t, func() {
			Register("nil_provider", nil)
		})
	})

	t.Run("register duplicate panics", func(t *testing.T) {
		factory := func(config Config) (EmbeddingService, error) {
			return &MockEmbeddings{dimensions: 3}, nil
		}
		Register("dup_provider", factory)
		assert.Panics(t, func() {
			Register("dup_provider", factory)
		})
	})

	t.Run("is registered", func(t *testing.T) {
		assert.False(t, IsRegistered("nonexistent_provider"))
	})

	t.Run("create unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "unknown_provider"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

func TestRegistryConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ListProviders()
		}()
		go func() {
			defer wg.Done()
			_ = IsRegistered("mock")
		}()
	}
	wg.Wait()
}

func TestNewMockService(t *testing.T) {
	service, err := New(Config{
		Provider: "mock",
		Mock:     &MockConfig{Dimensions: 16},
	})
	require.NoError(t, err)
	defer service.Close()

	assert.Equal(t, 16, service.Dimensions())
	assert.Equal(t, "mock", service.ModelName())

	ctx := context.Background()
	vec, err := service.Embed(ctx, "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestMockDeterminism(t *testing.T) {
	service, err := NewMock(Config{Mock: &MockConfig{Dimensions: 32}})
	require.NoError(t, err)

	ctx := context.Background()
	a1, err := service.Embed(ctx, "same text")
	require.NoError(t, err)
	a2, err := service.Embed(ctx, "same text")
	require.NoError(t, err)
	b, err := service.Embed(ctx, "different text")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestMockUnitNorm(t *testing.T) {
	service, err := NewMock(Config{Mock: &MockConfig{Dimensions: 64}})
	require.NoError(t, err)

	vec, err := service.Embed(context.Background(), "normalize me")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 0.0001)
}

func TestMockEmbedBatch(t *testing.T) {
	service, err := NewMock(Config{Mock: &MockConfig{Dimensions: 8}})
	require.NoError(t, err)

	ctx := context.Background()
	vecs, err := service.EmbedBatch(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := service.Embed(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])

	_, err = service.EmbedBatch(ctx, nil)
	assert.Error(t, err)

	_, err = service.EmbedBatch(ctx, []string{"ok", ""})
	assert.ErrorContains(t, err, "index 1")
}

func TestMockEmptyText(t *testing.T) {
	service, err := NewMock(Config{})
	require.NoError(t, err)

	_, err = service.Embed(context.Background(), "")
	assert.ErrorContains(t, err, "text cannot be empty")
}
