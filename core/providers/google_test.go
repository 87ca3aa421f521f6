package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGoogleConvertResponse(t *testing.T) {
	p := &GoogleProvider{config: DefaultGoogleConfig()}

	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: string(genai.RoleModel),
				Parts: []*genai.Part{
					{Text: "Here is "},
					{Text: "an idea."},
					{FunctionCall: &genai.FunctionCall{Name: "generate_character_profile", Args: map[string]any{"theme": "noir"}}},
				},
			},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     4,
			CandidatesTokenCount: 6,
			TotalTokenCount:      10,
		},
	}

	resp := p.convertResponse("gemini-2.5-flash", res)
	assert.Equal(t, "Here is an idea.", resp.Content)
	assert.Equal(t, StopReasonToolUse, resp.StopReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	require.Len(t, resp.ToolCalls, 1)
	assert.Empty(t, resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"theme":"noir"}`, resp.ToolCalls[0].Arguments)
}

func TestGoogleConvertResponseEmpty(t *testing.T) {
	p := &GoogleProvider{config: DefaultGoogleConfig()}

	resp := p.convertResponse("gemini-2.5-flash", &genai.GenerateContentResponse{})
	assert.Empty(t, resp.Content)
	assert.Equal(t, StopReasonEndTurn, resp.StopReason)
}

func TestGoogleConvertMessages(t *testing.T) {
	p := &GoogleProvider{config: DefaultGoogleConfig()}

	contents := p.convertMessages([]Message{
		{Role: RoleUser, Name: "Critic", Content: "Needs more conflict."},
		{Role: RoleAssistant, Content: "Revised."},
		{Role: RoleAssistant},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, "Critic: Needs more conflict.", contents[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, " ", contents[2].Parts[0].Text)
}

func TestGoogleConvertResponseKeepsFunctionCallID(t *testing.T) {
	p := &GoogleProvider{config: DefaultGoogleConfig()}

	res := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{ID: "fc-7", Name: "generate_character_profile", Args: map[string]any{"theme": "noir"}}},
				},
			},
		}},
	}

	resp := p.convertResponse("gemini-2.5-flash", res)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "fc-7", resp.ToolCalls[0].ID)
}
