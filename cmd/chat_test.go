package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/adalundhe/museswarm/core/engine"
	"github.com/adalundhe/museswarm/core/session"
	"github.com/adalundhe/museswarm/core/swarm"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result *swarm.Result
	err    error
}

func (s stubRunner) Run(_ context.Context, _ string, opts engine.RunOptions) (*swarm.Result, error) {
	if opts.OnMessage != nil && s.result != nil {
		for _, m := range s.result.Transcript {
			opts.OnMessage(m)
		}
	}
	return s.result, s.err
}

func newTestChat(r runner) (chatModel, *session.Session) {
	sess := session.NewSession()
	m := newChatModel(context.Background(), r, sess, &relay{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(chatModel), sess
}

func typeAndSubmit(t *testing.T, m chatModel, text string) (chatModel, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(chatModel), cmd
}

func TestChatSubmitStartsRun(t *testing.T) {
	m, _ := newTestChat(stubRunner{result: sampleRun()})

	m, cmd := typeAndSubmit(t, m, "A steampunk hero.")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.blocks, 1)
	assert.Contains(t, m.blocks[0], "A steampunk hero.")

	_, again := typeAndSubmit(t, m, "second prompt")
	assert.Nil(t, again, "prompts are ignored while a run is in progress")
}

func TestChatIgnoresEmptyPrompt(t *testing.T) {
	m, _ := newTestChat(stubRunner{result: sampleRun()})

	m, cmd := typeAndSubmit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Empty(t, m.blocks)
}

func TestChatLiveMessagesAndCompletion(t *testing.T) {
	m, sess := newTestChat(stubRunner{result: sampleRun()})
	m, _ = typeAndSubmit(t, m, "A steampunk hero.")

	for _, msg := range sampleRun().Transcript {
		next, _ := m.Update(liveMsg{message: msg})
		m = next.(chatModel)
	}
	// user prompt, tool request, tool result, final Muse message
	assert.Len(t, m.blocks, 4)

	next, _ := m.Update(runDoneMsg{prompt: "A steampunk hero.", result: sampleRun()})
	m = next.(chatModel)

	assert.False(t, m.busy)
	assert.False(t, m.failed)
	assert.Equal(t, "Finished: explicit termination after 3 turns", m.status)
	assert.Equal(t, 3, sess.Len())
	assert.Equal(t, session.Entry{Name: "User", Content: "A steampunk hero."}, sess.Messages()[0])
}

func TestChatRunFailure(t *testing.T) {
	m, sess := newTestChat(stubRunner{})
	m.busy = true

	next, _ := m.Update(runDoneMsg{prompt: "x", err: errors.New("no API key found for \"groq\"")})
	m = next.(chatModel)

	assert.False(t, m.busy)
	assert.True(t, m.failed)
	assert.Contains(t, m.status, "no API key")
	assert.Zero(t, sess.Len())
}

func TestChatRunCmdForwardsMessages(t *testing.T) {
	var forwarded []tea.Msg
	rl := &relay{}
	rl.set(func(msg tea.Msg) { forwarded = append(forwarded, msg) })

	m := newChatModel(context.Background(), stubRunner{result: sampleRun()}, session.NewSession(), rl)
	done := m.runCmd("A steampunk hero.")()

	require.IsType(t, runDoneMsg{}, done)
	assert.Equal(t, sampleRun(), done.(runDoneMsg).result)
	assert.Len(t, forwarded, len(sampleRun().Transcript))
}

func TestChatQuit(t *testing.T) {
	m, _ := newTestChat(stubRunner{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
