package swarm

import (
	"context"
	"errors"
	"testing"

	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionConfigValidate(t *testing.T) {
	require.NoError(t, testConfig(1).Validate())

	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"zero round cap", func(c *SessionConfig) { c.RoundCap = 0 }},
		{"blank token", func(c *SessionConfig) { c.TerminationToken = " " }},
		{"unknown policy", func(c *SessionConfig) { c.Selection = "random" }},
		{"manager without binding", func(c *SessionConfig) { c.Selection = SelectManager }},
		{"negative timeout", func(c *SessionConfig) { c.TurnTimeout = -1 }},
		{"missing critic", func(c *SessionConfig) { delete(c.Bindings, Critic) }},
		{"coordinator bound", func(c *SessionConfig) { c.Bindings[Coordinator] = testBinding }},
		{"unknown provider", func(c *SessionConfig) {
			b := testBinding
			b.Provider = "cohere"
			c.Bindings[Muse] = b
		}},
		{"missing credential", func(c *SessionConfig) {
			b := testBinding
			b.Credential = ""
			c.Bindings[Critic] = b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(3)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, serrors.ErrConfiguration)
		})
	}
}

func TestBuildRoster(t *testing.T) {
	cfg := testConfig(3)
	cfg.Selection = SelectManager
	manager := testBinding
	manager.Model = "deepseek-r1-distill-llama-70b"
	cfg.ManagerBinding = &manager

	var resolved []string
	resolve := func(_ context.Context, b ModelBinding) (providers.Provider, error) {
		resolved = append(resolved, b.Model)
		return script(text(b.Model)), nil
	}

	prompts := map[ParticipantID]string{Muse: "muse prompt", Critic: "critic prompt"}
	roster, err := BuildRoster(context.Background(), cfg, prompts, resolve)
	require.NoError(t, err)

	assert.Equal(t, []ParticipantID{Coordinator, Muse, Critic}, roster.IDs())
	assert.NotNil(t, roster.Manager())
	assert.Equal(t, []string{testBinding.Model, testBinding.Model, "deepseek-r1-distill-llama-70b"}, resolved)

	muse, ok := roster.Get(Muse)
	require.True(t, ok)
	assert.Equal(t, "muse prompt", muse.SystemPrompt)
	assert.True(t, muse.Can(CapToolCall|CapTerminate))

	critic, _ := roster.Get(Critic)
	assert.False(t, critic.Can(CapToolCall))

	coordinator, _ := roster.Get(Coordinator)
	assert.True(t, coordinator.Can(CapExecuteTools))
	assert.Nil(t, coordinator.Provider)
}

func TestBuildRosterResolverFailure(t *testing.T) {
	missing := errors.New("no API key found for \"groq\"")
	resolve := func(context.Context, ModelBinding) (providers.Provider, error) {
		return nil, missing
	}

	_, err := BuildRoster(context.Background(), testConfig(3), nil, resolve)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrConfiguration)
	assert.ErrorIs(t, err, missing)
	assert.Contains(t, err.Error(), "Creative_Muse")

	_, err = BuildRoster(context.Background(), testConfig(3), nil, nil)
	assert.ErrorIs(t, err, serrors.ErrConfiguration)
}

func TestRosterAdd(t *testing.T) {
	r := NewRoster()
	assert.Error(t, r.Add(&Participant{ID: Coordinator, Provider: script(text("x"))}))
	assert.Error(t, r.Add(&Participant{ID: Muse}))
	require.NoError(t, r.Add(&Participant{ID: Muse, Provider: script(text("x"))}))
	assert.Error(t, r.Add(&Participant{ID: Muse, Provider: script(text("x"))}))
}
