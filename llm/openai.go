package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	openaiDefaultModel = "gpt-4o-mini"
	openaiMaxRetries   = 3
)

func init() {
	RegisterFactory("openai", func(config map[string]any) (Provider, error) {
		apiKey := ""
		if k, ok := config["api_key"].(string); ok {
			apiKey = k
		}
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}

		baseURL := ""
		if u, ok := config["base_url"].(string); ok {
			baseURL = u
		}

		return NewOpenAIProvider(apiKey, WithOpenAIBaseURL(baseURL)), nil
	})
}

// OpenAIClient is the subset of the go-openai client used by the provider.
// Declared as an interface for testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// OpenAIProvider implements Provider using the OpenAI chat completions API
type OpenAIProvider struct {
	client OpenAIClient
	model  string
}

// OpenAIOption configures the OpenAI provider
type OpenAIOption func(*openaiOptions)

type openaiOptions struct {
	baseURL string
	model   string
	client  OpenAIClient
}

// WithOpenAIBaseURL overrides the API base URL (for proxies and compatible APIs)
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *openaiOptions) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithOpenAIModel sets the default model
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *openaiOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIClient injects a custom client (useful for testing)
func WithOpenAIClient(client OpenAIClient) OpenAIOption {
	return func(o *openaiOptions) {
		o.client = client
	}
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	options := openaiOptions{model: openaiDefaultModel}
	for _, opt := range opts {
		opt(&options)
	}

	client := options.client
	if client == nil {
		cfg := openai.DefaultConfig(apiKey)
		if options.baseURL != "" {
			cfg.BaseURL = options.baseURL
		}
		client = openai.NewClientWithConfig(cfg)
	}

	return &OpenAIProvider{
		client: client,
		model:  options.model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// CreateCompletion creates a completion via the chat completions API
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	chatReq := p.buildRequest(req)

	var lastErr error
	for attempt := 0; attempt < openaiMaxRetries; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			return p.convertResponse(resp)
		}

		perr := p.mapError(err)
		if !perr.IsRetryable {
			return nil, perr
		}
		lastErr = perr

		// Exponential backoff before retry
		if attempt < openaiMaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, NewProviderError("openai", ErrorCodeTimeout, "context cancelled during retry", ctx.Err())
			case <-time.After(time.Second * time.Duration(1<<attempt)):
			}
		}
	}

	return nil, lastErr
}

// CreateStructured creates a completion constrained to a JSON schema
func (p *OpenAIProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	chatReq := p.buildRequest(req.CompletionRequest)

	schemaName := req.SchemaName
	if schemaName == "" {
		schemaName = "response"
	}
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: req.ResponseSchema,
			Strict: true,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, p.mapError(err)
	}

	completion, err := p.convertResponse(resp)
	if err != nil {
		return nil, err
	}

	return &StructuredResponse{
		Data:               []byte(completion.Content),
		CompletionResponse: *completion,
	}, nil
}

// CreateStreaming creates a streaming completion
func (p *OpenAIProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	chatReq := p.buildRequest(req)
	chatReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, p.mapError(err)
	}

	return &openaiStream{stream: stream}, nil
}

func (p *OpenAIProvider) buildRequest(req CompletionRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		messages = append(messages, msg)
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Tools:       tools,
	}
}

func (p *OpenAIProvider) convertResponse(resp openai.ChatCompletionResponse) (*CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, NewProviderError("openai", ErrorCodeUnknown, "no choices in response", nil)
	}

	choice := resp.Choices[0]

	var toolCalls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    toolCalls,
		Model:        resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *OpenAIProvider) mapError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := statusToCode(apiErr.HTTPStatusCode)
		perr := NewProviderError("openai", code, apiErr.Message, err)
		perr.StatusCode = apiErr.HTTPStatusCode
		return perr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := statusToCode(reqErr.HTTPStatusCode)
		perr := NewProviderError("openai", code, reqErr.Error(), err)
		perr.StatusCode = reqErr.HTTPStatusCode
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProviderError("openai", ErrorCodeTimeout, "request cancelled or timed out", err)
	}

	return NewProviderError("openai", ErrorCodeUnknown, err.Error(), err)
}

// openaiStream adapts the go-openai stream to the Stream interface
type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv receives the next chunk
func (s *openaiStream) Recv() (*StreamChunk, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, NewProviderError("openai", ErrorCodeServerError, "stream receive failed", err)
	}

	chunk := &StreamChunk{}
	if len(resp.Choices) > 0 {
		chunk.Delta = resp.Choices[0].Delta.Content
		chunk.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return chunk, nil
}

// Close closes the stream
func (s *openaiStream) Close() error {
	return s.stream.Close()
}
