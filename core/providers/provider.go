package providers

import (
	"context"
)

// Provider is a single model endpoint. Generate issues exactly one
// non-streaming request.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*Response, error)
	ValidateConfig() error
	Close() error
}

// Binding names the endpoint, model and credential a caller talks to.
type Binding struct {
	Provider   ProviderType `json:"provider" yaml:"provider"`
	Model      string       `json:"model" yaml:"model"`
	BaseURL    string       `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Credential string       `json:"credential" yaml:"credential"`
}

func (b Binding) key() string {
	return string(b.Provider) + "|" + b.Model + "|" + b.BaseURL + "|" + b.Credential
}

type Request struct {
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Tools        []Tool    `json:"tools,omitempty"`
}

type Message struct {
	Role       Role       `json:"role"`
	Name       string     `json:"name,omitempty"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall carries the raw argument text exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Response struct {
	Content    string     `json:"content"`
	Model      string     `json:"model"`
	StopReason StopReason `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonError        StopReason = "error"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
