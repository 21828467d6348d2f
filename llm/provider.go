package llm

import (
	"context"
	"encoding/json"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// CreateCompletion creates a completion (unstructured text response)
	CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// CreateStructured creates a structured response with schema validation
	CreateStructured(ctx context.Context, request StructuredRequest) (*StructuredResponse, error)

	// CreateStreaming creates a streaming response
	CreateStreaming(ctx context.Context, request CompletionRequest) (Stream, error)

	// Name returns the provider name (e.g., "openai", "gemini", "bedrock")
	Name() string
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Name identifies the tool for role "tool" messages
	Name string `json:"name,omitempty"`

	// ToolCalls set on assistant messages that request tool execution
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a role "tool" message to the call it answers
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system-role message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool-role message answering the given call
func ToolMessage(toolCallID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name, ToolCallID: toolCallID}
}

// Tool represents a function/tool that can be called by the LLM
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema for parameters
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Model is the model to use (e.g., "gpt-4o", "gemini-2.0-flash")
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (0.0-2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// Tools available for the model to call
	Tools []Tool `json:"tools,omitempty"`

	// Additional provider-specific options
	Extra map[string]any `json:"extra,omitempty"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// FinishReason explains why generation stopped
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information
	Usage Usage `json:"usage"`

	// ToolCalls if the model called any tools
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Model that produced the response, as reported by the provider
	Model string `json:"model,omitempty"`
}

// Message converts the response into an assistant message for history
func (r *CompletionResponse) Message() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Content,
		ToolCalls: r.ToolCalls,
	}
}

// StructuredRequest represents a request for structured output
type StructuredRequest struct {
	CompletionRequest

	// ResponseSchema is the JSON Schema for the expected response
	ResponseSchema json.RawMessage `json:"response_schema"`

	// SchemaName labels the schema for providers that require a name
	SchemaName string `json:"schema_name,omitempty"`
}

// StructuredResponse represents a structured response
type StructuredResponse struct {
	// Data is the parsed structured data
	Data json.RawMessage `json:"data"`

	CompletionResponse
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage across calls
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ToolCall represents a function call made by the model
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Stream represents a streaming response
type Stream interface {
	// Recv receives the next chunk
	Recv() (*StreamChunk, error)

	// Close closes the stream
	Close() error
}

// StreamChunk represents a chunk in a streaming response
type StreamChunk struct {
	// Delta is the incremental content
	Delta string `json:"delta"`

	// FinishReason if this is the last chunk
	FinishReason string `json:"finish_reason,omitempty"`
}
