package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentgraph-dev/agentgraph/internal/observability"
)

// InstrumentedProvider wraps a Provider with tracing and cost tracking.
// Every call gets a span carrying token usage, latency, and dollar cost.
type InstrumentedProvider struct {
	provider   Provider
	calculator *CostCalculator
	enabled    bool
}

// InstrumentedConfig configures an instrumented provider
type InstrumentedConfig struct {
	// Calculator for cost tracking (defaults to DefaultCostCalculator)
	Calculator *CostCalculator

	// Enabled controls whether instrumentation is active
	Enabled bool
}

// NewInstrumentedProvider wraps a provider with tracing and cost tracking
func NewInstrumentedProvider(provider Provider, config *InstrumentedConfig) *InstrumentedProvider {
	if config == nil {
		config = &InstrumentedConfig{
			Calculator: DefaultCostCalculator,
			Enabled:    true,
		}
	}
	if config.Calculator == nil {
		config.Calculator = DefaultCostCalculator
	}

	return &InstrumentedProvider{
		provider:   provider,
		calculator: config.Calculator,
		enabled:    config.Enabled,
	}
}

// Name returns the underlying provider name
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// CreateCompletion creates a completion with automatic instrumentation
func (p *InstrumentedProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	if !p.enabled {
		return p.provider.CreateCompletion(ctx, request)
	}

	ctx, span := p.startSpan(ctx, "completion", request)
	defer span.End()

	startTime := time.Now()
	response, err := p.provider.CreateCompletion(ctx, request)
	p.finishSpan(span, request, startTime, err, response)

	return response, err
}

// CreateStructured creates a structured response with automatic instrumentation
func (p *InstrumentedProvider) CreateStructured(ctx context.Context, request StructuredRequest) (*StructuredResponse, error) {
	if !p.enabled {
		return p.provider.CreateStructured(ctx, request)
	}

	ctx, span := p.startSpan(ctx, "structured", request.CompletionRequest)
	defer span.End()

	startTime := time.Now()
	response, err := p.provider.CreateStructured(ctx, request)

	var completion *CompletionResponse
	if response != nil {
		completion = &response.CompletionResponse
	}
	p.finishSpan(span, request.CompletionRequest, startTime, err, completion)

	return response, err
}

// CreateStreaming creates a streaming response. The span covers stream
// creation only; chunk-level timing stays with the caller.
func (p *InstrumentedProvider) CreateStreaming(ctx context.Context, request CompletionRequest) (Stream, error) {
	if !p.enabled {
		return p.provider.CreateStreaming(ctx, request)
	}

	ctx, span := p.startSpan(ctx, "streaming", request)
	defer span.End()

	stream, err := p.provider.CreateStreaming(ctx, request)
	if err != nil {
		span.RecordError(err)
	}

	return stream, err
}

func (p *InstrumentedProvider) startSpan(ctx context.Context, operation string, request CompletionRequest) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, fmt.Sprintf("llm.%s.%s", p.provider.Name(), operation),
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", request.Model),
			attribute.Float64("llm.temperature", request.Temperature),
			attribute.Int("llm.max_tokens", request.MaxTokens),
			attribute.Int("llm.messages_count", len(request.Messages)),
			attribute.Int("llm.tools_count", len(request.Tools)),
		),
	)
}

func (p *InstrumentedProvider) finishSpan(span trace.Span, request CompletionRequest, startTime time.Time, err error, response *CompletionResponse) {
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
		attribute.Bool("llm.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		return
	}

	if response == nil {
		return
	}

	model := response.Model
	if model == "" {
		model = request.Model
	}
	cost := p.calculator.Calculate(model, response.Usage)

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", response.Usage.TotalTokens),
		attribute.Float64("llm.cost.total_usd", cost.TotalCost),
		attribute.String("llm.finish_reason", response.FinishReason),
		attribute.Int("llm.tool_calls_count", len(response.ToolCalls)),
	)
}
