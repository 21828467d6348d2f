package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const bedrockDefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

func init() {
	RegisterFactory("bedrock", func(config map[string]any) (Provider, error) {
		region := ""
		if r, ok := config["region"].(string); ok {
			region = r
		}
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			region = "us-east-1"
		}

		return NewBedrockProvider(context.Background(), region)
	})
}

// BedrockProvider implements Provider using the Amazon Bedrock Converse API
type BedrockProvider struct {
	runtime *bedrockruntime.Client
	control *bedrock.Client
	region  string
}

// NewBedrockProvider creates a Bedrock provider using the default AWS
// credential chain for the given region.
func NewBedrockProvider(ctx context.Context, region string) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		runtime: bedrockruntime.NewFromConfig(cfg),
		control: bedrock.NewFromConfig(cfg),
		region:  region,
	}, nil
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// CreateCompletion creates a completion via the Converse API
func (p *BedrockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	input, err := p.buildInput(req)
	if err != nil {
		return nil, err
	}

	out, err := p.runtime.Converse(ctx, input)
	if err != nil {
		return nil, p.wrapError(err)
	}

	return p.parseOutput(out)
}

// CreateStructured creates a structured response. The Converse API has no
// schema-constrained output mode, so the schema is injected as an instruction
// and the reply is validated as JSON.
func (p *BedrockProvider) CreateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	instruction := fmt.Sprintf(
		"Respond only with a JSON object matching this JSON Schema, with no surrounding text:\n%s",
		string(req.ResponseSchema),
	)

	completionReq := req.CompletionRequest
	completionReq.Messages = append([]Message{SystemMessage(instruction)}, completionReq.Messages...)

	resp, err := p.CreateCompletion(ctx, completionReq)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Content)
	// Models occasionally wrap JSON in a code fence
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if !json.Valid([]byte(content)) {
		return nil, NewProviderError("bedrock", ErrorCodeInvalidRequest, "model returned invalid JSON", nil)
	}

	return &StructuredResponse{
		Data:               json.RawMessage(content),
		CompletionResponse: *resp,
	}, nil
}

// CreateStreaming creates a streaming response via ConverseStream
func (p *BedrockProvider) CreateStreaming(ctx context.Context, req CompletionRequest) (Stream, error) {
	input, err := p.buildInput(req)
	if err != nil {
		return nil, err
	}

	streamInput := &bedrockruntime.ConverseStreamInput{
		ModelId:         input.ModelId,
		Messages:        input.Messages,
		System:          input.System,
		InferenceConfig: input.InferenceConfig,
		ToolConfig:      input.ToolConfig,
	}

	out, err := p.runtime.ConverseStream(ctx, streamInput)
	if err != nil {
		return nil, p.wrapError(err)
	}

	return &bedrockStream{stream: out.GetStream()}, nil
}

// ListModels returns the foundation model IDs available in the region
func (p *BedrockProvider) ListModels(ctx context.Context) ([]string, error) {
	out, err := p.control.ListFoundationModels(ctx, &bedrock.ListFoundationModelsInput{})
	if err != nil {
		return nil, p.wrapError(err)
	}

	ids := make([]string, 0, len(out.ModelSummaries))
	for _, summary := range out.ModelSummaries {
		if summary.ModelId != nil {
			ids = append(ids, *summary.ModelId)
		}
	}
	return ids, nil
}

func (p *BedrockProvider) buildInput(req CompletionRequest) (*bedrockruntime.ConverseInput, error) {
	model := req.Model
	if model == "" {
		model = bedrockDefaultModel
	}

	var system []types.SystemContentBlock
	var messages []types.Message

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})

		case RoleAssistant:
			var blocks []types.ContentBlock
			if m.Content != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				blocks = append(blocks, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(args),
					},
				})
			}
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: blocks,
			})

		case RoleTool:
			messages = append(messages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(m.ToolCallID),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: m.Content},
							},
						},
					},
				},
			})

		default:
			messages = append(messages, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: m.Content},
				},
			})
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
		System:   system,
	}

	inference := &types.InferenceConfiguration{}
	inference.Temperature = aws.Float32(float32(req.Temperature))
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	input.InferenceConfig = inference

	if len(req.Tools) > 0 {
		toolList := make([]types.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			var schema map[string]any
			if len(t.Parameters) > 0 {
				if err := json.Unmarshal(t.Parameters, &schema); err != nil {
					return nil, NewProviderError("bedrock", ErrorCodeInvalidRequest,
						fmt.Sprintf("invalid parameters schema for tool %s", t.Name), err)
				}
			}
			toolList = append(toolList, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(t.Name),
					Description: aws.String(t.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(schema),
					},
				},
			})
		}
		input.ToolConfig = &types.ToolConfiguration{Tools: toolList}
	}

	return input, nil
}

func (p *BedrockProvider) parseOutput(out *bedrockruntime.ConverseOutput) (*CompletionResponse, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, NewProviderError("bedrock", ErrorCodeUnknown, "unexpected output type", nil)
	}

	var content string
	var toolCalls []ToolCall

	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			content += b.Value
		case *types.ContentBlockMemberToolUse:
			var args map[string]any
			_ = b.Value.Input.UnmarshalSmithyDocument(&args)
			argsJSON, _ := json.Marshal(args)
			toolCalls = append(toolCalls, ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: argsJSON,
			})
		}
	}

	finishReason := string(out.StopReason)
	if finishReason == string(types.StopReasonEndTurn) {
		finishReason = "stop"
	}

	var usage Usage
	if out.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}

	return &CompletionResponse{
		Content:      content,
		FinishReason: finishReason,
		ToolCalls:    toolCalls,
		Usage:        usage,
	}, nil
}

func (p *BedrockProvider) wrapError(err error) error {
	if err == nil {
		return nil
	}

	code := ErrorCodeUnknown
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "throttl") || strings.Contains(errMsg, "too many requests"):
		code = ErrorCodeRateLimit
	case strings.Contains(errMsg, "accessdenied") || strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "credential"):
		code = ErrorCodeAuthentication
	case strings.Contains(errMsg, "resourcenotfound") || strings.Contains(errMsg, "not found"):
		code = ErrorCodeModelNotFound
	case strings.Contains(errMsg, "validation"):
		code = ErrorCodeInvalidRequest
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		code = ErrorCodeTimeout
	case strings.Contains(errMsg, "internal") || strings.Contains(errMsg, "service unavailable"):
		code = ErrorCodeServerError
	}

	return &ProviderError{
		Provider:      "bedrock",
		Code:          code,
		Message:       err.Error(),
		IsRetryable:   isRetryableCode(code),
		OriginalError: err,
	}
}

// bedrockStream implements Stream over the Converse event stream
type bedrockStream struct {
	stream *bedrockruntime.ConverseStreamEventStream
	done   bool
}

func (s *bedrockStream) Recv() (*StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for event := range s.stream.Events() {
		switch e := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockDelta:
			if delta, ok := e.Value.Delta.(*types.ContentBlockDeltaMemberText); ok {
				return &StreamChunk{Delta: delta.Value}, nil
			}
		case *types.ConverseStreamOutputMemberMessageStop:
			s.done = true
			finishReason := string(e.Value.StopReason)
			if finishReason == string(types.StopReasonEndTurn) {
				finishReason = "stop"
			}
			return &StreamChunk{FinishReason: finishReason}, nil
		}
	}

	s.done = true
	if err := s.stream.Err(); err != nil {
		return nil, NewProviderError("bedrock", ErrorCodeServerError, "stream failed", err)
	}
	return nil, io.EOF
}

func (s *bedrockStream) Close() error {
	return s.stream.Close()
}
