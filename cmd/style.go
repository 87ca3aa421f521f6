package cmd

import (
	"fmt"
	"strings"

	"github.com/adalundhe/museswarm/core/session"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/charmbracelet/lipgloss"
)

type theme struct {
	title       lipgloss.Style
	speakers    map[string]lipgloss.Style
	fallback    lipgloss.Style
	content     lipgloss.Style
	toolCall    lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	help        lipgloss.Style
	input       lipgloss.Style
}

func newTheme() theme {
	violet := lipgloss.Color("#7d56f4")
	amber := lipgloss.Color("#f2a93b")
	teal := lipgloss.Color("#2bb3a3")
	rose := lipgloss.Color("#e2587a")
	muted := lipgloss.Color("#8a8aa3")

	speaker := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}

	return theme{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(violet).
			Bold(true).
			Padding(0, 1),
		speakers: map[string]lipgloss.Style{
			session.UserName:          speaker(teal),
			string(swarm.Coordinator): speaker(muted),
			string(swarm.Muse):        speaker(violet),
			string(swarm.Critic):      speaker(amber),
		},
		fallback:    speaker(muted),
		content:     lipgloss.NewStyle().PaddingLeft(3),
		toolCall:    lipgloss.NewStyle().PaddingLeft(3).Foreground(muted).Italic(true),
		status:      lipgloss.NewStyle().Foreground(teal).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(rose).Bold(true),
		help:        lipgloss.NewStyle().Foreground(muted),
		input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(violet).
			Padding(0, 1),
	}
}

func (t theme) speaker(name string) lipgloss.Style {
	if s, ok := t.speakers[name]; ok {
		return s
	}
	return t.fallback
}

// renderEntry formats one history line. width <= 0 disables wrapping.
func (t theme) renderEntry(name, content string, width int) string {
	header := t.speaker(name).Render(session.Avatar(name) + " " + name)
	body := t.content
	if width > 0 {
		body = body.Width(width)
	}
	return header + "\n" + body.Render(content)
}

// renderMessage formats a transcript message including any tool request.
// It returns "" for messages with nothing to show.
func (t theme) renderMessage(m swarm.Message, width int) string {
	var parts []string
	if strings.TrimSpace(m.Content) != "" {
		parts = append(parts, t.renderEntry(string(m.Speaker), m.Content, width))
	}
	if m.ToolCall != nil {
		call := t.toolCall.Render(fmt.Sprintf("→ %s %s", m.ToolCall.Name, m.ToolCall.Arguments))
		if len(parts) == 0 {
			parts = append(parts, t.speaker(string(m.Speaker)).Render(session.Avatar(string(m.Speaker))+" "+string(m.Speaker)))
		}
		parts = append(parts, call)
	}
	return strings.Join(parts, "\n")
}

func (t theme) renderOutcome(res *swarm.Result, err error) string {
	if err != nil {
		return t.errorStatus.Render(outcomeText(res, err))
	}
	return t.status.Render(outcomeText(res, err))
}

func outcomeText(res *swarm.Result, err error) string {
	if err != nil {
		return fmt.Sprintf("Stopped early after %d turns: %v", res.Turns, err)
	}
	return fmt.Sprintf("Finished: %s after %d turns", res.Reason, res.Turns)
}
