package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestProviderError(t *testing.T) {
	original := fmt.Errorf("boom")
	err := NewProviderError("openai", ErrorCodeRateLimit, "too many requests", original)

	if err.Error() != "openai error: too many requests" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
	if !err.IsRetryable {
		t.Error("rate limit errors must be retryable")
	}
	if !errors.Is(err, original) {
		t.Error("Unwrap must expose the original error")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Error("errors.As must match *ProviderError")
	}
}

func TestIsRetryableCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{ErrorCodeRateLimit, true},
		{ErrorCodeServerError, true},
		{ErrorCodeTimeout, true},
		{ErrorCodeInvalidRequest, false},
		{ErrorCodeAuthentication, false},
		{ErrorCodeModelNotFound, false},
		{ErrorCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := isRetryableCode(tt.code); got != tt.want {
				t.Errorf("isRetryableCode(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatusToCode(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, ErrorCodeInvalidRequest},
		{401, ErrorCodeAuthentication},
		{403, ErrorCodeAuthentication},
		{404, ErrorCodeModelNotFound},
		{408, ErrorCodeTimeout},
		{429, ErrorCodeRateLimit},
		{500, ErrorCodeServerError},
		{503, ErrorCodeServerError},
		{418, ErrorCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			if got := statusToCode(tt.status); got != tt.want {
				t.Errorf("statusToCode(%d) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestMessageConstructors(t *testing.T) {
	if m := SystemMessage("s"); m.Role != RoleSystem || m.Content != "s" {
		t.Errorf("SystemMessage = %+v", m)
	}
	if m := UserMessage("u"); m.Role != RoleUser || m.Content != "u" {
		t.Errorf("UserMessage = %+v", m)
	}
	if m := AssistantMessage("a"); m.Role != RoleAssistant || m.Content != "a" {
		t.Errorf("AssistantMessage = %+v", m)
	}
	m := ToolMessage("call-1", "calculator", "42")
	if m.Role != RoleTool || m.ToolCallID != "call-1" || m.Name != "calculator" || m.Content != "42" {
		t.Errorf("ToolMessage = %+v", m)
	}
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})

	if u.PromptTokens != 13 || u.CompletionTokens != 7 || u.TotalTokens != 20 {
		t.Errorf("Usage.Add = %+v", u)
	}
}

func TestCompletionResponseMessage(t *testing.T) {
	resp := &CompletionResponse{
		Content: "hello",
		ToolCalls: []ToolCall{
			{ID: "1", Name: "search", Arguments: []byte(`{"q":"go"}`)},
		},
	}

	msg := resp.Message()
	if msg.Role != RoleAssistant {
		t.Errorf("role = %s, want assistant", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("content = %s", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "search" {
		t.Errorf("tool calls = %+v", msg.ToolCalls)
	}
}
