package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/adalundhe/museswarm/core/config"
	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu      sync.Mutex
	replies []providers.Response
	calls   int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, _ *providers.Request) (*providers.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.replies[len(f.replies)-1]
	if f.calls < len(f.replies) {
		r = f.replies[f.calls]
	}
	f.calls++
	return &r, nil
}

func (f *fakeProvider) ValidateConfig() error { return nil }
func (f *fakeProvider) Close() error          { return nil }

type mapResolver map[string]string

func (m mapResolver) Resolve(name string) (string, error) {
	if key, ok := m[name]; ok {
		return key, nil
	}
	return "", fmt.Errorf("no API key found for %q", name)
}

type fixture struct {
	cfg     *config.Config
	byModel map[string]*fakeProvider
	built   int
}

func newFixture() *fixture {
	cfg := config.DefaultConfig()
	cfg.Agents.Critic.Binding.Model = "critic-model"

	return &fixture{
		cfg: cfg,
		byModel: map[string]*fakeProvider{
			config.CreativeModel: {replies: []providers.Response{
				{ToolCalls: []providers.ToolCall{{ID: "tc-1", Name: "generate_character_profile", Arguments: `{"theme":"steampunk inventor"}`}}},
				{Content: "Ada Brass it is. TERMINATE"},
			}},
			"critic-model":       {replies: []providers.Response{{Content: "More backstory."}}},
			config.ReasoningModel: {replies: []providers.Response{{Content: "Name: Ada Brass"}}},
		},
	}
}

func (f *fixture) factory(_ context.Context, b providers.Binding, apiKey string, _ providers.BaseConfig) (providers.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("empty key")
	}
	f.built++
	p, ok := f.byModel[b.Model]
	if !ok {
		return nil, fmt.Errorf("unexpected model %s", b.Model)
	}
	return p, nil
}

func (f *fixture) engine(resolver providers.CredentialResolver) *Engine {
	return New(func() *config.Config { return f.cfg }, resolver,
		WithFactory(f.factory),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

var allKeys = mapResolver{"groq": "gsk-main", "groq_specialist": "gsk-specialist"}

func TestRunWithProfileTool(t *testing.T) {
	f := newFixture()
	e := f.engine(allKeys)

	var observed int
	res, err := e.Run(context.Background(), "A steampunk hero.", RunOptions{
		SessionID: "s-1",
		OnMessage: func(swarm.Message) { observed++ },
	})
	require.NoError(t, err)

	assert.Equal(t, swarm.ReasonExplicitTermination, res.Reason)
	require.Len(t, res.Transcript, 4)
	assert.Equal(t, swarm.Coordinator, res.Transcript[2].Speaker)
	assert.Equal(t, "--- Character Profile ---\nName: Ada Brass", res.Transcript[2].Content)
	assert.Equal(t, "tc-1", res.Transcript[2].ToolCallID)
	assert.Equal(t, 4, observed)
	assert.Equal(t, 1, f.byModel[config.ReasoningModel].calls)
	assert.Zero(t, f.byModel["critic-model"].calls)
}

func TestRunRoundCapOverride(t *testing.T) {
	f := newFixture()
	f.byModel[config.CreativeModel].replies = []providers.Response{{Content: "idea"}}
	e := f.engine(allKeys)

	res, err := e.Run(context.Background(), "A hero.", RunOptions{RoundCap: 3})
	require.NoError(t, err)
	assert.Equal(t, swarm.ReasonRoundLimit, res.Reason)
	assert.Equal(t, 3, res.Turns)
}

func TestRunMissingCredential(t *testing.T) {
	f := newFixture()
	e := f.engine(mapResolver{})

	res, err := e.Run(context.Background(), "A hero.", RunOptions{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, serrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "groq")
}

func TestRunInvalidConfig(t *testing.T) {
	f := newFixture()
	f.cfg.Swarm.Selection = "random"
	e := f.engine(allKeys)

	_, err := e.Run(context.Background(), "A hero.", RunOptions{})
	assert.ErrorIs(t, err, serrors.ErrConfiguration)
	assert.Zero(t, f.built)
}

func TestRunEmptyPrompt(t *testing.T) {
	f := newFixture()
	_, err := f.engine(allKeys).Run(context.Background(), " ", RunOptions{})
	assert.ErrorIs(t, err, swarm.ErrEmptyPrompt)
	assert.Zero(t, f.built)
}

func TestResetRebuildsProviders(t *testing.T) {
	f := newFixture()
	f.byModel[config.CreativeModel].replies = []providers.Response{{Content: "idea"}}
	e := f.engine(allKeys)

	_, err := e.Run(context.Background(), "A hero.", RunOptions{RoundCap: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, f.built)

	_, err = e.Run(context.Background(), "A hero.", RunOptions{RoundCap: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, f.built, "clients are cached between runs")

	require.NoError(t, e.Reset())
	_, err = e.Run(context.Background(), "A hero.", RunOptions{RoundCap: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, f.built)
}

func TestSessionConfigFromDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Swarm.Selection = config.SelectionManager

	sc, prompts := SessionConfig(cfg)
	require.NoError(t, sc.Validate())

	assert.Equal(t, config.DefaultRoundCap, sc.RoundCap)
	assert.Equal(t, providers.ProviderTypeOpenAI, sc.Bindings[swarm.Muse].Provider)
	assert.Equal(t, config.GroqBaseURL, sc.Bindings[swarm.Critic].BaseURL)
	require.NotNil(t, sc.ManagerBinding)
	assert.Equal(t, config.ReasoningModel, sc.ManagerBinding.Model)
	require.NotNil(t, sc.Temperature)
	assert.InDelta(t, 0.7, *sc.Temperature, 1e-9)
	assert.Equal(t, config.DefaultMusePrompt, prompts[swarm.Muse])

	pc := ProfileConfig(cfg)
	assert.Equal(t, "groq_specialist", pc.Binding.Credential)
	assert.Equal(t, config.DefaultProfileHeader, pc.Header)
}
