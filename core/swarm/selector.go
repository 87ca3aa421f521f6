package swarm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/adalundhe/museswarm/core/providers"
)

// Selector picks the next generative speaker. The Coordinator is never
// selected; it only speaks to execute tools.
type Selector interface {
	Next(ctx context.Context, t *Transcript) ParticipantID
}

// RoundRobin starts with the Muse and then alternates with the Critic.
type RoundRobin struct{}

func (RoundRobin) Next(_ context.Context, t *Transcript) ParticipantID {
	last, ok := t.LastGenerative()
	if !ok || last.Speaker == Critic {
		return Muse
	}
	return Critic
}

// ManagerSelector asks a reasoning model to name the next speaker and falls
// back to round robin when the call fails or the answer names no single
// candidate.
type ManagerSelector struct {
	provider   providers.Provider
	model      string
	roster     *Roster
	candidates []ParticipantID
	patterns   []speakerPattern
	timeout    time.Duration
	fallback   Selector
	logger     *slog.Logger
}

func NewManagerSelector(provider providers.Provider, model string, roster *Roster, timeout time.Duration, logger *slog.Logger) *ManagerSelector {
	if logger == nil {
		logger = slog.Default()
	}
	candidates := []ParticipantID{Muse, Critic}
	return &ManagerSelector{
		provider:   provider,
		model:      model,
		roster:     roster,
		candidates: candidates,
		patterns:   compileSpeakers(candidates),
		timeout:    timeout,
		fallback:   RoundRobin{},
		logger:     logger,
	}
}

func (m *ManagerSelector) Next(ctx context.Context, t *Transcript) ParticipantID {
	if m.provider == nil {
		return m.fallback.Next(ctx, t)
	}

	callCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	messages := historyFor("", t.Messages())
	messages = append(messages, providers.Message{
		Role:    providers.RoleSystem,
		Content: fmt.Sprintf("Read the above conversation. Then select the next role from %s to play. Only return the role.", m.candidateList()),
	})

	resp, err := m.provider.Generate(callCtx, &providers.Request{
		Model:        m.model,
		SystemPrompt: m.systemPrompt(),
		Messages:     messages,
	})
	if err != nil {
		next := m.fallback.Next(ctx, t)
		m.logger.Warn("speaker selection failed, using round robin",
			slog.String("error", err.Error()),
			slog.String("speaker", string(next)),
		)
		return next
	}

	if choice, ok := parseSpeaker(resp.Content, m.patterns); ok {
		return choice
	}

	next := m.fallback.Next(ctx, t)
	m.logger.Warn("speaker selection unparsable, using round robin",
		slog.String("reply", resp.Content),
		slog.String("speaker", string(next)),
	)
	return next
}

func (m *ManagerSelector) systemPrompt() string {
	var roles strings.Builder
	for _, id := range m.candidates {
		desc := ""
		if p, ok := m.roster.Get(id); ok {
			desc = p.SystemPrompt
		}
		fmt.Fprintf(&roles, "%s: %s\n", id, desc)
	}
	return fmt.Sprintf("You are in a role play game. The following roles are available:\n%s.\nRead the following conversation.\nThen select the next role from %s to play. Only return the role.",
		strings.TrimRight(roles.String(), "\n"), m.candidateList())
}

func (m *ManagerSelector) candidateList() string {
	names := make([]string, len(m.candidates))
	for i, id := range m.candidates {
		names[i] = string(id)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

type speakerPattern struct {
	id ParticipantID
	re *regexp.Regexp
}

// compileSpeakers builds a whole-word matcher per candidate.
func compileSpeakers(candidates []ParticipantID) []speakerPattern {
	out := make([]speakerPattern, len(candidates))
	for i, id := range candidates {
		out[i] = speakerPattern{id: id, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(string(id)) + `\b`)}
	}
	return out
}

// parseSpeaker returns the single candidate named in reply, ignoring any
// reasoning block.
func parseSpeaker(reply string, patterns []speakerPattern) (ParticipantID, bool) {
	reply = thinkBlock.ReplaceAllString(reply, "")

	var found []ParticipantID
	for _, p := range patterns {
		if p.re.MatchString(reply) {
			found = append(found, p.id)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}
