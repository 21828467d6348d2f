package llm

import (
	"context"
	"errors"
	"testing"
)

func TestInstrumentedProviderPassesThrough(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("traced")

	p := NewInstrumentedProvider(mock, nil)

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("CreateCompletion: %v", err)
	}
	if resp.Content != "traced" {
		t.Errorf("content = %s", resp.Content)
	}
	if p.Name() != "mock" {
		t.Errorf("Name = %s", p.Name())
	}
}

func TestInstrumentedProviderPropagatesErrors(t *testing.T) {
	mock := NewMockProvider()
	scripted := errors.New("provider down")
	mock.AddResponse(nil, scripted)

	p := NewInstrumentedProvider(mock, nil)

	if _, err := p.CreateCompletion(context.Background(), CompletionRequest{}); !errors.Is(err, scripted) {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestInstrumentedProviderDisabled(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("plain")

	p := NewInstrumentedProvider(mock, &InstrumentedConfig{Enabled: false})

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("CreateCompletion: %v", err)
	}
	if resp.Content != "plain" {
		t.Errorf("content = %s", resp.Content)
	}
}

func TestInstrumentedProviderStructured(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse(`{"ok":true}`)

	p := NewInstrumentedProvider(mock, nil)

	resp, err := p.CreateStructured(context.Background(), StructuredRequest{})
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}
	if string(resp.Data) != `{"ok":true}` {
		t.Errorf("Data = %s", resp.Data)
	}
}

func TestInstrumentedProviderStreaming(t *testing.T) {
	mock := NewMockProvider()
	mock.AddTextResponse("s")

	p := NewInstrumentedProvider(mock, nil)

	stream, err := p.CreateStreaming(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("CreateStreaming: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
