package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token-bucket rate limit.
// Calls block until the limiter admits them or the context is cancelled.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider wraps provider with the given requests-per-second
// limit and burst size.
func NewRateLimitedProvider(provider Provider, requestsPerSecond float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Name returns the underlying provider name
func (p *RateLimitedProvider) Name() string {
	return p.provider.Name()
}

// CreateCompletion waits for the limiter, then delegates
func (p *RateLimitedProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(p.provider.Name(), ErrorCodeRateLimit, "rate limiter wait aborted", err)
	}
	return p.provider.CreateCompletion(ctx, req)
}

// CreateStructured waits for the limiter, then delegates
func (p *RateLimitedProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(p.provider.Name(), ErrorCodeRateLimit, "rate limiter wait aborted", err)
	}
	return p.provider.CreateStructured(ctx, req)
}

// CreateStreaming waits for the limiter, then delegates
func (p *RateLimitedProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, NewProviderError(p.provider.Name(), ErrorCodeRateLimit, "rate limiter wait aborted", err)
	}
	return p.provider.CreateStreaming(ctx, req)
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// ErrCircuitOpen is returned when the breaker is rejecting calls
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open")

// CircuitBreakerProvider wraps a Provider with a circuit breaker. After
// maxFailures consecutive failures the circuit opens and calls fail fast
// until resetTimeout has elapsed, when one probe call is allowed through.
type CircuitBreakerProvider struct {
	provider     Provider
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	failures        int
	lastFailureTime time.Time
	state           CircuitState
}

// NewCircuitBreakerProvider wraps provider with a circuit breaker
func NewCircuitBreakerProvider(provider Provider, maxFailures int, resetTimeout time.Duration) *CircuitBreakerProvider {
	return &CircuitBreakerProvider{
		provider:     provider,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

// Name returns the underlying provider name
func (p *CircuitBreakerProvider) Name() string {
	return p.provider.Name()
}

// CreateCompletion runs the call through the breaker
func (p *CircuitBreakerProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.admit(); err != nil {
		return nil, err
	}
	resp, err := p.provider.CreateCompletion(ctx, req)
	p.record(err)
	return resp, err
}

// CreateStructured runs the call through the breaker
func (p *CircuitBreakerProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	if err := p.admit(); err != nil {
		return nil, err
	}
	resp, err := p.provider.CreateStructured(ctx, req)
	p.record(err)
	return resp, err
}

// CreateStreaming runs the call through the breaker. Only stream creation
// counts toward the breaker; mid-stream failures do not.
func (p *CircuitBreakerProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	if err := p.admit(); err != nil {
		return nil, err
	}
	stream, err := p.provider.CreateStreaming(ctx, req)
	p.record(err)
	return stream, err
}

// State returns the current circuit state
func (p *CircuitBreakerProvider) State() CircuitState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset manually closes the circuit
func (p *CircuitBreakerProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	p.state = CircuitClosed
}

func (p *CircuitBreakerProvider) admit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == CircuitOpen && time.Since(p.lastFailureTime) > p.resetTimeout {
		p.state = CircuitHalfOpen
		p.failures = 0
	}

	if p.state == CircuitOpen {
		return NewProviderError(p.provider.Name(), ErrorCodeRateLimit, "circuit breaker is open", ErrCircuitOpen)
	}

	return nil
}

func (p *CircuitBreakerProvider) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failures++
		p.lastFailureTime = time.Now()
		// A failure during the half-open trial reopens immediately.
		if p.state == CircuitHalfOpen || p.failures >= p.maxFailures {
			p.state = CircuitOpen
		}
		return
	}

	p.failures = 0
	p.state = CircuitClosed
}
