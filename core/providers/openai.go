package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider against the Chat Completions API of
// OpenAI or any compatible endpoint such as Groq.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIProvider creates a new OpenAI provider with the given configuration
func NewOpenAIProvider(config OpenAIConfig, extra ...option.RequestOption) (*OpenAIProvider, error) {
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultOpenAIConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		base := config.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	opts = append(opts, extra...)
	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return string(ProviderTypeOpenAI)
}

// Generate performs a non-streaming chat completion request
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	params := p.buildParams(req)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if perr := asToolUseFailure(err); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("openai generate: %w", err)
	}

	return p.convertResponse(completion), nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *OpenAIProvider) ValidateConfig() error {
	return p.config.Validate()
}

// DefaultModel returns the provider's default model
func (p *OpenAIProvider) DefaultModel() string {
	return p.config.Model
}

// Close cleans up any resources
func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildParams(req *Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(model),
		Messages:  p.convertMessages(req.Messages, req.SystemPrompt),
		MaxTokens: openai.Int(int64(maxTokens)),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	if len(req.Tools) > 0 {
		params.Tools = p.convertTools(req.Tools)
	}

	return params
}

func (p *OpenAIProvider) convertMessages(messages []Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)

	if systemPrompt != "" {
		result = append(result, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))

		case RoleUser:
			m := openai.UserMessage(msg.Content)
			if msg.Name != "" {
				m.OfUser.Name = openai.String(msg.Name)
			}
			result = append(result, m)

		case RoleAssistant:
			m := openai.AssistantMessage(msg.Content)
			if msg.Name != "" {
				m.OfAssistant.Name = openai.String(msg.Name)
			}
			for _, tc := range msg.ToolCalls {
				m.OfAssistant.ToolCalls = append(m.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			result = append(result, m)

		case RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	return result
}

func (p *OpenAIProvider) convertTools(tools []Tool) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, len(tools))
	for i, tool := range tools {
		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.Parameters),
			},
		}
	}
	return result
}

// convertResponse reads the first choice. A body without choices yields an
// empty response rather than an error.
func (p *OpenAIProvider) convertResponse(completion *openai.ChatCompletion) *Response {
	resp := &Response{
		Model:      completion.Model,
		StopReason: StopReasonEndTurn,
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}

	if len(completion.Choices) == 0 {
		return resp
	}

	choice := completion.Choices[0]
	resp.Content = choice.Message.Content
	resp.StopReason = p.convertFinishReason(string(choice.FinishReason))

	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return resp
}

func (p *OpenAIProvider) convertFinishReason(reason string) StopReason {
	switch reason {
	case "length":
		return StopReasonMaxTokens
	case "tool_calls", "function_call":
		return StopReasonToolUse
	case "content_filter":
		return StopReasonError
	default:
		return StopReasonEndTurn
	}
}

// asToolUseFailure recognizes the Groq "tool_use_failed" rejection, which
// carries the model's malformed generation in failed_generation.
func asToolUseFailure(err error) *ProtocolError {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}

	raw := apiErr.RawJSON()
	if apiErr.Code != "tool_use_failed" && !strings.Contains(raw, "tool_use_failed") &&
		!strings.Contains(err.Error(), "tool_use_failed") {
		return nil
	}

	generation := failedGeneration(raw)
	if generation == "" {
		generation = apiErr.Message
	}
	if generation == "" {
		generation = err.Error()
	}
	return &ProtocolError{Raw: generation, Err: err}
}

func failedGeneration(raw string) string {
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}
	if nested, ok := body["error"].(map[string]any); ok {
		body = nested
	}
	s, _ := body["failed_generation"].(string)
	return s
}
