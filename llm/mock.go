package llm

import (
	"context"
	"io"
	"sync"
)

func init() {
	RegisterFactory("mock", func(config map[string]any) (Provider, error) {
		return NewMockProvider(), nil
	})
}

// MockProvider is a scripted Provider implementation for testing.
// Responses are returned in the order they were added; once exhausted,
// calls return an empty response.
type MockProvider struct {
	name      string
	responses []*CompletionResponse
	errors    []error
	calls     []CompletionRequest
	callIndex int
	mu        sync.Mutex
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock"}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return m.name
}

// AddResponse queues a response (and optional error) to return
func (m *MockProvider) AddResponse(resp *CompletionResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errors = append(m.errors, err)
}

// AddTextResponse queues a plain text response
func (m *MockProvider) AddTextResponse(content string) {
	m.AddResponse(&CompletionResponse{
		Content:      content,
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil)
}

// AddToolCallResponse queues a response requesting a tool call
func (m *MockProvider) AddToolCallResponse(id, name string, arguments string) {
	m.AddResponse(&CompletionResponse{
		FinishReason: "tool_calls",
		ToolCalls: []ToolCall{
			{ID: id, Name: name, Arguments: []byte(arguments)},
		},
		Usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil)
}

// CreateCompletion returns the next scripted response
func (m *MockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.callIndex >= len(m.responses) {
		return &CompletionResponse{FinishReason: "stop"}, nil
	}

	resp := m.responses[m.callIndex]
	err := m.errors[m.callIndex]
	m.callIndex++

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateStructured returns the next scripted response with its content as data
func (m *MockProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	resp, err := m.CreateCompletion(ctx, req.CompletionRequest)
	if err != nil {
		return nil, err
	}
	return &StructuredResponse{
		Data:               []byte(resp.Content),
		CompletionResponse: *resp,
	}, nil
}

// CreateStreaming splits the next scripted response into single-rune chunks
func (m *MockProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	resp, err := m.CreateCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return &mockStream{content: []rune(resp.Content), finishReason: resp.FinishReason}, nil
}

// Calls returns a copy of all recorded requests
func (m *MockProvider) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]CompletionRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of completion calls made
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears scripted responses and recorded calls
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.errors = nil
	m.calls = nil
	m.callIndex = 0
}

type mockStream struct {
	content      []rune
	finishReason string
	pos          int
}

func (s *mockStream) Recv() (*StreamChunk, error) {
	if s.pos >= len(s.content) {
		if s.finishReason != "" {
			reason := s.finishReason
			s.finishReason = ""
			return &StreamChunk{FinishReason: reason}, nil
		}
		return nil, io.EOF
	}

	chunk := &StreamChunk{Delta: string(s.content[s.pos])}
	s.pos++
	return chunk, nil
}

func (s *mockStream) Close() error {
	return nil
}
