package swarm

import (
	"testing"

	"github.com/adalundhe/museswarm/core/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	m, err := NewMessage(Muse, "hello", 1)
	require.NoError(t, err)
	assert.Equal(t, Muse, m.Speaker)

	_, err = NewMessage("Narrator", "hello", 1)
	assert.Error(t, err)

	_, err = NewMessage(Critic, "hello", -1)
	assert.Error(t, err)
}

func TestMessageContains(t *testing.T) {
	m := Message{Speaker: Muse, Content: "We are done. TERMINATE"}
	assert.True(t, m.Contains("TERMINATE"))
	assert.False(t, m.Contains("terminate"))
	assert.False(t, m.Contains(""))
}

func TestTranscriptAppend(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(Message{Speaker: Coordinator, Content: "seed", TurnIndex: 0}))

	assert.Error(t, tr.Append(Message{Speaker: Muse, TurnIndex: 2}), "gap")
	assert.Error(t, tr.Append(Message{Speaker: Muse, TurnIndex: 0}), "repeat")
	assert.Error(t, tr.Append(Message{Speaker: "Narrator", TurnIndex: 1}), "unknown speaker")

	require.NoError(t, tr.Append(Message{Speaker: Muse, Content: "idea", TurnIndex: 1}))
	require.NoError(t, tr.Append(Message{Speaker: Critic, Content: "meh", TurnIndex: 2}))
	require.NoError(t, tr.Append(Message{Speaker: Coordinator, Content: "result", TurnIndex: 3, ToolCallID: "call_1"}))

	assert.Equal(t, 4, tr.Len())
	assert.Equal(t, 4, tr.NextIndex())
	assert.Equal(t, 2, tr.GenerativeTurns())

	last, ok := tr.LastGenerative()
	require.True(t, ok)
	assert.Equal(t, Critic, last.Speaker)

	muse, ok := tr.Last(Muse)
	require.True(t, ok)
	assert.Equal(t, "idea", muse.Content)
}

func TestTranscriptSnapshotsAreCopies(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Append(Message{Speaker: Coordinator, Content: "seed"}))
	require.NoError(t, tr.Append(Message{
		Speaker:   Muse,
		TurnIndex: 1,
		ToolCall:  &ToolCallRecord{ID: "call_1", Name: "generate_character_profile", Arguments: "{}"},
	}))

	snap := tr.Messages()
	snap[0].Content = "changed"
	snap[1].ToolCall.Name = "changed"

	again := tr.Messages()
	assert.Equal(t, "seed", again[0].Content)
	assert.Equal(t, "generate_character_profile", again[1].ToolCall.Name)
}

func TestHistoryFor(t *testing.T) {
	msgs := []Message{
		{Speaker: Coordinator, Content: "prompt", TurnIndex: 0},
		{Speaker: Muse, TurnIndex: 1, ToolCall: &ToolCallRecord{ID: "call_1", Name: "generate_character_profile", Arguments: `{"theme":"x"}`}},
		{Speaker: Coordinator, Content: "profile", TurnIndex: 2, ToolCallID: "call_1"},
		{Speaker: Critic, Content: "", TurnIndex: 3},
		{Speaker: Critic, Content: "ok", TurnIndex: 4},
	}

	muse := historyFor(Muse, msgs)
	require.Len(t, muse, 4)
	assert.Equal(t, providers.RoleUser, muse[0].Role)
	assert.Equal(t, providers.RoleAssistant, muse[1].Role)
	require.Len(t, muse[1].ToolCalls, 1)
	assert.Equal(t, "call_1", muse[1].ToolCalls[0].ID)
	assert.Equal(t, providers.RoleTool, muse[2].Role)
	assert.Equal(t, "call_1", muse[2].ToolCallID)
	assert.Equal(t, providers.Message{Role: providers.RoleUser, Name: "Critic", Content: "ok"}, muse[3])

	critic := historyFor(Critic, msgs)
	require.Len(t, critic, 4)
	assert.Equal(t, providers.RoleUser, critic[1].Role)
	assert.Equal(t, `(requested generate_character_profile with {"theme":"x"})`, critic[1].Content)
	assert.Equal(t, providers.RoleUser, critic[2].Role)
	assert.Equal(t, "Project_Manager", critic[2].Name)
	assert.Equal(t, providers.RoleAssistant, critic[3].Role)

	for _, m := range historyFor("", msgs) {
		assert.Equal(t, providers.RoleUser, m.Role)
	}
}

func TestParseToolInstruction(t *testing.T) {
	tests := []struct {
		content string
		name    string
		args    string
		ok      bool
		wantErr bool
	}{
		{content: "Just an idea."},
		{content: "I could use the tool: later"},
		{content: `tool: generate_character_profile {"theme":"noir"}`, name: "generate_character_profile", args: `{"theme":"noir"}`, ok: true},
		{content: "  tool: generate_character_profile  ", name: "generate_character_profile", args: "{}", ok: true},
		{content: "tool: generate_character_profile\n{\"theme\": \"rogue AI\"}", name: "generate_character_profile", args: `{"theme": "rogue AI"}`, ok: true},
		{content: "tool:\tgenerate_character_profile\t{\"theme\":\"noir\"}", name: "generate_character_profile", args: `{"theme":"noir"}`, ok: true},
		{content: "tool:", wantErr: true},
		{content: `tool: generate_character_profile ["noir"]`, wantErr: true},
		{content: `tool: generate_character_profile {"theme":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, args, ok, err := parseToolInstruction(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}
