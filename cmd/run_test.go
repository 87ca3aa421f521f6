package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRun() *swarm.Result {
	return &swarm.Result{
		Transcript: []swarm.Message{
			{Speaker: swarm.Coordinator, Content: "A steampunk hero.", TurnIndex: 0},
			{Speaker: swarm.Muse, TurnIndex: 1, ToolCall: &swarm.ToolCallRecord{ID: "call_1", Name: "generate_character_profile", Arguments: `{"theme":"steampunk"}`}},
			{Speaker: swarm.Coordinator, Content: "--- Character Profile ---\nName: Ada Brass", TurnIndex: 2, ToolCallID: "call_1"},
			{Speaker: swarm.Critic, Content: "", TurnIndex: 3},
			{Speaker: swarm.Muse, Content: "Ada Brass. TERMINATE", TurnIndex: 4},
		},
		Reason: swarm.ReasonExplicitTermination,
		Turns:  3,
	}
}

func TestReadPrompt(t *testing.T) {
	p, err := readPrompt([]string{"a", "steampunk", "hero"}, strings.NewReader("ignored"), false)
	require.NoError(t, err)
	assert.Equal(t, "a steampunk hero", p)

	p, err = readPrompt(nil, strings.NewReader("  from stdin\n"), false)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", p)

	_, err = readPrompt(nil, strings.NewReader("never read"), true)
	assert.ErrorIs(t, err, swarm.ErrEmptyPrompt)

	_, err = readPrompt([]string{"  "}, strings.NewReader(""), false)
	assert.ErrorIs(t, err, swarm.ErrEmptyPrompt)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, "sess-1", sampleRun(), errors.New("boom")))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "sess-1", out["session_id"])
	assert.Equal(t, "explicit termination", out["reason"])
	assert.Equal(t, float64(3), out["turns"])
	assert.Equal(t, "boom", out["error"])

	transcript, ok := out["transcript"].([]any)
	require.True(t, ok)
	assert.Len(t, transcript, 5)
	first := transcript[1].(map[string]any)
	assert.Equal(t, "Creative_Muse", first["speaker"])
	assert.NotNil(t, first["tool_call"])
}

func TestPrintTranscript(t *testing.T) {
	var buf bytes.Buffer
	printTranscript(&buf, newTheme(), sampleRun(), nil)
	out := buf.String()

	assert.Contains(t, out, "Creative Muse Swarm")
	assert.Contains(t, out, "A steampunk hero.")
	assert.Contains(t, out, "→ generate_character_profile")
	assert.Contains(t, out, "Name: Ada Brass")
	assert.Contains(t, out, "Finished: explicit termination after 3 turns")
	assert.NotContains(t, out, "🧐 Critic", "empty messages are not printed")
}

func TestPrintTranscriptAborted(t *testing.T) {
	res := sampleRun()
	res.Reason = swarm.ReasonAborted

	var buf bytes.Buffer
	printTranscript(&buf, newTheme(), res, errors.New("rate limited"))
	assert.Contains(t, buf.String(), "Stopped early after 3 turns: rate limited")
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config.DefaultConfig()))

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, config.DefaultRoundCap, back.Swarm.RoundCap)
	assert.Equal(t, config.CreativeModel, back.Agents.Muse.Binding.Model)
	assert.Equal(t, "groq_specialist", back.Tool.Binding.Credential)
}
