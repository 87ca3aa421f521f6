package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleProvider implements Provider for the Gemini API
type GoogleProvider struct {
	client *genai.Client
	config GoogleConfig
}

// NewGoogleProvider creates a new Gemini provider with the given configuration
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.Model == "" {
		config.Model = DefaultGoogleConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGoogleConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	return &GoogleProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Generate performs a non-streaming GenerateContent request
func (p *GoogleProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	res, err := p.client.Models.GenerateContent(ctx, model, p.convertMessages(req.Messages), p.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("google generate: %w", err)
	}

	return p.convertResponse(model, res), nil
}

// ValidateConfig checks if the provider configuration is valid
func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

// Close cleans up any resources
func (p *GoogleProvider) Close() error {
	return nil
}

func (p *GoogleProvider) buildConfig(req *Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	} else if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.config.Temperature))
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, tool := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: tool.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return cfg
}

// convertMessages maps the conversation onto Gemini's user/model roles.
func (p *GoogleProvider) convertMessages(messages []Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleSystem:
			text := msg.Content
			if msg.Name != "" {
				text = msg.Name + ": " + text
			}
			result = append(result, genai.NewContentFromText(text, genai.RoleUser))

		case RoleAssistant:
			parts := make([]*genai.Part, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, decodeArguments(tc.Arguments)))
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(" "))
			}
			result = append(result, genai.NewContentFromParts(parts, genai.RoleModel))

		case RoleTool:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return result
}

// convertResponse reads the first candidate. Blocked or empty responses
// yield empty content.
func (p *GoogleProvider) convertResponse(model string, res *genai.GenerateContentResponse) *Response {
	resp := &Response{
		Model:      model,
		StopReason: StopReasonEndTurn,
	}

	if res.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  int(res.UsageMetadata.PromptTokenCount),
			OutputTokens: int(res.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(res.UsageMetadata.TotalTokenCount),
		}
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return resp
	}

	candidate := res.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			// Gemini often omits the ID; callers assign one when it is empty.
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
			continue
		}
		if part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	resp.Content = text.String()

	switch {
	case len(resp.ToolCalls) > 0:
		resp.StopReason = StopReasonToolUse
	case candidate.FinishReason == genai.FinishReasonMaxTokens:
		resp.StopReason = StopReasonMaxTokens
	}

	return resp
}
