package llm

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestMockProviderScriptedResponses(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("first")
	mock.AddResponse(nil, errors.New("scripted failure"))
	mock.AddToolCallResponse("call-1", "calculator", `{"a":1,"b":2}`)

	ctx := context.Background()

	resp, err := mock.CreateCompletion(ctx, CompletionRequest{})
	if err != nil {
		t.Fatalf("first call returned error: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("content = %s, want first", resp.Content)
	}

	if _, err := mock.CreateCompletion(ctx, CompletionRequest{}); err == nil {
		t.Fatal("second call should return scripted error")
	}

	resp, err = mock.CreateCompletion(ctx, CompletionRequest{})
	if err != nil {
		t.Fatalf("third call returned error: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "calculator" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}

	// Exhausted: empty response, no error
	resp, err = mock.CreateCompletion(ctx, CompletionRequest{})
	if err != nil || resp.Content != "" {
		t.Errorf("exhausted call = (%+v, %v)", resp, err)
	}

	if mock.CallCount() != 4 {
		t.Errorf("CallCount = %d, want 4", mock.CallCount())
	}
}

func TestMockProviderRecordsRequests(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("ok")

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{UserMessage("hello")},
	}
	if _, err := mock.CreateCompletion(context.Background(), req); err != nil {
		t.Fatalf("CreateCompletion: %v", err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("Calls() length = %d, want 1", len(calls))
	}
	if calls[0].Model != "test-model" {
		t.Errorf("recorded model = %s", calls[0].Model)
	}
}

func TestMockProviderCancelledContext(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("never")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.CreateCompletion(ctx, CompletionRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMockProviderStreaming(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("hi")

	stream, err := mock.CreateStreaming(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("CreateStreaming: %v", err)
	}
	defer stream.Close()

	var collected string
	var finishReason string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		collected += chunk.Delta
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
	}

	if collected != "hi" {
		t.Errorf("streamed content = %q, want %q", collected, "hi")
	}
	if finishReason != "stop" {
		t.Errorf("finish reason = %q, want stop", finishReason)
	}
}

func TestMockProviderStructured(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse(`{"route":"billing"}`)

	resp, err := mock.CreateStructured(context.Background(), StructuredRequest{})
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}
	if string(resp.Data) != `{"route":"billing"}` {
		t.Errorf("Data = %s", resp.Data)
	}
}

func TestMockProviderReset(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("a")
	if _, err := mock.CreateCompletion(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("CreateCompletion: %v", err)
	}

	mock.Reset()
	if mock.CallCount() != 0 {
		t.Errorf("CallCount after Reset = %d", mock.CallCount())
	}
}
