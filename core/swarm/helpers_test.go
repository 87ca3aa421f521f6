package swarm

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/adalundhe/museswarm/core/providers"
	"github.com/adalundhe/museswarm/core/tools"
	"github.com/stretchr/testify/require"
)

type reply struct {
	content   string
	toolCalls []providers.ToolCall
	err       error
}

// scriptedProvider returns its replies in order and repeats the last one
// once the script is exhausted.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []reply
	requests []*providers.Request
}

func script(replies ...reply) *scriptedProvider {
	return &scriptedProvider{replies: replies}
}

func text(s string) reply { return reply{content: s} }

func toolCall(name, args string) reply {
	return reply{toolCalls: []providers.ToolCall{{Name: name, Arguments: args}}}
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.replies[len(s.replies)-1]
	if n := len(s.requests) - 1; n < len(s.replies) {
		r = s.replies[n]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &providers.Response{Content: r.content, ToolCalls: r.toolCalls}, nil
}

func (s *scriptedProvider) ValidateConfig() error { return nil }
func (s *scriptedProvider) Close() error          { return nil }

func (s *scriptedProvider) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// blockingProvider waits for its context to end.
type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }
func (blockingProvider) Generate(ctx context.Context, _ *providers.Request) (*providers.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (blockingProvider) ValidateConfig() error { return nil }
func (blockingProvider) Close() error          { return nil }

var testBinding = ModelBinding{
	Provider:   providers.ProviderTypeOpenAI,
	Model:      "llama-3.3-70b-versatile",
	BaseURL:    "https://api.groq.com/openai/v1",
	Credential: "groq",
}

func testConfig(roundCap int) SessionConfig {
	return SessionConfig{
		RoundCap:         roundCap,
		Bindings:         map[ParticipantID]ModelBinding{Muse: testBinding, Critic: testBinding},
		TerminationToken: "TERMINATE",
		Selection:        SelectRoundRobin,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRoster(t *testing.T, muse, critic providers.Provider) *Roster {
	t.Helper()
	r := NewRoster()
	require.NoError(t, r.Add(&Participant{ID: Muse, Binding: testBinding, SystemPrompt: "You are a creative muse.", Provider: muse}))
	require.NoError(t, r.Add(&Participant{ID: Critic, Binding: testBinding, SystemPrompt: "You are a critic.", Provider: critic}))
	return r
}

const profileText = "--- Character Profile ---\nName: Ada Brass"

// countingTool registers a profile tool whose executions are counted.
func countingTool(t *testing.T, d *Dispatcher) *int {
	t.Helper()
	n := new(int)
	spec := ToolSpec{
		Name:        "generate_character_profile",
		Description: "Generate a detailed profile for a fictional character.",
		Schema:      tools.ProfileSchema,
		Caller:      Muse,
		Executor:    Coordinator,
		Func: func(context.Context, map[string]any) string {
			*n++
			return profileText
		},
	}
	require.NoError(t, d.Register(spec))
	return n
}

func newTestLoop(t *testing.T, cfg SessionConfig, muse, critic providers.Provider, opts ...LoopOption) (*Loop, *int) {
	t.Helper()
	d := NewDispatcher(WithDispatchLogger(quietLogger()))
	n := countingTool(t, d)
	opts = append([]LoopOption{WithLogger(quietLogger())}, opts...)
	loop, err := NewLoop(cfg, testRoster(t, muse, critic), d, opts...)
	require.NoError(t, err)
	return loop, n
}

func speakers(msgs []Message) []ParticipantID {
	out := make([]ParticipantID, len(msgs))
	for i, m := range msgs {
		out[i] = m.Speaker
	}
	return out
}
