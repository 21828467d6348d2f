package llm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel  = "gemini-2.0-flash"
	geminiMaxRetries    = 5
	geminiBaseDelay     = 1 * time.Second
	geminiMaxDelay      = 32 * time.Second
	geminiJitterFactor  = 0.3
	geminiClientTimeout = 30 * time.Second
)

func init() {
	RegisterFactory("gemini", func(config map[string]any) (Provider, error) {
		apiKey := ""
		if k, ok := config["api_key"].(string); ok {
			apiKey = k
		}
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey != "" {
			return NewGeminiProvider(apiKey)
		}

		// No API key: fall back to Vertex AI with application default credentials
		projectID := ""
		if id, ok := config["project_id"].(string); ok {
			projectID = id
		}
		if projectID == "" {
			projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if projectID == "" {
			return nil, fmt.Errorf("neither GEMINI_API_KEY nor GOOGLE_CLOUD_PROJECT set")
		}

		location := ""
		if loc, ok := config["location"].(string); ok {
			location = loc
		}
		if location == "" {
			location = os.Getenv("VERTEX_AI_LOCATION")
		}
		if location == "" {
			location = "us-central1"
		}

		return NewGeminiVertexProvider(projectID, location)
	})
}

// GeminiProvider implements Provider using the Google Gen AI SDK.
// It talks to either the Gemini API (API key auth) or Vertex AI
// (application default credentials) depending on how it was constructed.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini API provider authenticated by API key.
func NewGeminiProvider(apiKey string) (*GeminiProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiClientTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// NewGeminiVertexProvider creates a provider backed by Vertex AI.
// It uses Application Default Credentials (ADC) for authentication.
func NewGeminiVertexProvider(projectID, location string) (*GeminiProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiClientTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// CreateCompletion creates a completion using the Gen AI SDK
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	config := p.buildConfig(req)
	contents, systemInstruction := p.buildContents(req.Messages)
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	if len(req.Tools) > 0 {
		config.Tools = p.buildTools(req.Tools)
	}

	resp, err := p.generateWithRetry(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}

	return p.parseResponse(resp)
}

// CreateStructured creates a structured response constrained by a JSON schema
func (p *GeminiProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	config := p.buildConfig(req.CompletionRequest)
	config.ResponseMIMEType = "application/json"
	if len(req.ResponseSchema) > 0 {
		var schema *genai.Schema
		if err := json.Unmarshal(req.ResponseSchema, &schema); err == nil {
			config.ResponseSchema = schema
		}
	}

	contents, systemInstruction := p.buildContents(req.Messages)
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}

	resp, err := p.generateWithRetry(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}

	compResp, err := p.parseResponse(resp)
	if err != nil {
		return nil, err
	}

	return &StructuredResponse{
		Data:               json.RawMessage(compResp.Content),
		CompletionResponse: *compResp,
	}, nil
}

// CreateStreaming creates a streaming response
func (p *GeminiProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	config := p.buildConfig(req)
	contents, systemInstruction := p.buildContents(req.Messages)
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	if len(req.Tools) > 0 {
		config.Tools = p.buildTools(req.Tools)
	}

	// The SDK exposes streaming as an iter.Seq2; pump it into channels so the
	// Stream interface can pull chunks on demand.
	respChan := make(chan *genai.GenerateContentResponse, 10)
	errChan := make(chan error, 1)
	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(respChan)
		defer close(errChan)

		for resp, err := range p.client.Models.GenerateContentStream(streamCtx, model, contents, config) {
			if err != nil {
				select {
				case errChan <- p.wrapError(err):
				case <-streamCtx.Done():
				}
				return
			}
			select {
			case respChan <- resp:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return &geminiStream{
		respChan: respChan,
		errChan:  errChan,
		ctx:      streamCtx,
		cancel:   cancel,
	}, nil
}

func (p *GeminiProvider) generateWithRetry(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := geminiBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err = p.client.Models.GenerateContent(ctx, model, contents, config)
		if err == nil {
			return resp, nil
		}

		if !isRetryableGenAIError(err) {
			return nil, p.wrapError(err)
		}
	}

	return nil, p.wrapError(err)
}

func (p *GeminiProvider) buildConfig(req CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	// Temperature 0 is a valid value for deterministic output
	config.Temperature = genai.Ptr(float32(req.Temperature))
	if req.MaxTokens > 0 && req.MaxTokens <= math.MaxInt32 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	return config
}

// buildContents converts messages to Gen AI content format
func (p *GeminiProvider) buildContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var systemInstruction *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}

		case RoleTool:
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.Name,
						Response: response,
					},
				}},
			})

		case RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, &genai.Part{Text: ""})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	return contents, systemInstruction
}

// buildTools converts tools to Gen AI tool format
func (p *GeminiProvider) buildTools(tools []Tool) []*genai.Tool {
	funcDecls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		var params *genai.Schema
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		funcDecls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// parseResponse parses the Gen AI response into CompletionResponse
func (p *GeminiProvider) parseResponse(resp *genai.GenerateContentResponse) (*CompletionResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, NewProviderError("gemini", ErrorCodeUnknown, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	var content string
	var toolCalls []ToolCall

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, ToolCall{
					ID:        part.FunctionCall.Name,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}

	finishReason := string(candidate.FinishReason)
	if finishReason == "STOP" || finishReason == "" {
		finishReason = "stop"
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResponse{
		Content:      content,
		FinishReason: finishReason,
		ToolCalls:    toolCalls,
		Usage:        usage,
	}, nil
}

// wrapError converts Gen AI errors to ProviderError
func (p *GeminiProvider) wrapError(err error) error {
	if err == nil {
		return nil
	}

	code := ErrorCodeUnknown
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "credential") || strings.Contains(errMsg, "403") || strings.Contains(errMsg, "401"):
		code = ErrorCodeAuthentication
	case strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota"):
		code = ErrorCodeRateLimit
	case strings.Contains(errMsg, "not found") || strings.Contains(errMsg, "404"):
		code = ErrorCodeModelNotFound
	case strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "400"):
		code = ErrorCodeInvalidRequest
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		code = ErrorCodeTimeout
	case strings.Contains(errMsg, "500") || strings.Contains(errMsg, "503") || strings.Contains(errMsg, "server"):
		code = ErrorCodeServerError
	}

	return &ProviderError{
		Provider:      "gemini",
		Code:          code,
		Message:       err.Error(),
		IsRetryable:   isRetryableCode(code),
		OriginalError: err,
	}
}

// isRetryableGenAIError checks if a Gen AI error is retryable
func isRetryableGenAIError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "500") ||
		strings.Contains(errMsg, "503") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline") ||
		strings.Contains(errMsg, "unavailable")
}

// geminiBackoff returns the backoff duration with jitter for a given attempt.
// Exponential: 1s, 2s, 4s, 8s, 16s, capped at geminiMaxDelay, ±30% jitter.
func geminiBackoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 31 {
		shift = 31
	}
	delay := time.Duration(1<<uint(shift)) * geminiBaseDelay
	if delay > geminiMaxDelay {
		delay = geminiMaxDelay
	}
	jitter := time.Duration(float64(delay) * geminiJitterFactor * (cryptoRandFloat64()*2 - 1))
	return delay + jitter
}

// cryptoRandFloat64 returns a random float64 in [0.0, 1.0)
func cryptoRandFloat64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// geminiStream implements Stream over the Gen AI SDK's iterator
type geminiStream struct {
	respChan <-chan *genai.GenerateContentResponse
	errChan  <-chan error
	ctx      context.Context
	cancel   context.CancelFunc
	done     bool
}

func (s *geminiStream) Recv() (*StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	select {
	case <-s.ctx.Done():
		s.done = true
		return nil, s.ctx.Err()
	case err := <-s.errChan:
		s.done = true
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	case resp, ok := <-s.respChan:
		if !ok {
			s.done = true
			return nil, io.EOF
		}

		chunk := &StreamChunk{}
		if len(resp.Candidates) > 0 {
			candidate := resp.Candidates[0]
			if candidate.Content != nil {
				for _, part := range candidate.Content.Parts {
					chunk.Delta += part.Text
				}
			}
			if string(candidate.FinishReason) == "STOP" {
				chunk.FinishReason = "stop"
			}
		}
		return chunk, nil
	}
}

func (s *geminiStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
