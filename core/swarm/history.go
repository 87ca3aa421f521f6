package swarm

import (
	"fmt"
	"strings"

	"github.com/adalundhe/museswarm/core/providers"
)

// historyFor renders the transcript as seen by viewer: its own messages as
// assistant turns, results of its own tool calls as tool messages, and
// everything else as named user messages. Empty messages are skipped.
func historyFor(viewer ParticipantID, msgs []Message) []providers.Message {
	callers := make(map[string]ParticipantID)
	for _, m := range msgs {
		if m.ToolCall != nil {
			callers[m.ToolCall.ID] = m.Speaker
		}
	}

	out := make([]providers.Message, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case viewer != "" && m.Speaker == viewer:
			pm := providers.Message{Role: providers.RoleAssistant, Name: string(m.Speaker), Content: m.Content}
			if m.ToolCall != nil {
				pm.ToolCalls = []providers.ToolCall{{
					ID:        m.ToolCall.ID,
					Name:      m.ToolCall.Name,
					Arguments: m.ToolCall.Arguments,
				}}
			}
			if strings.TrimSpace(pm.Content) == "" && len(pm.ToolCalls) == 0 {
				continue
			}
			out = append(out, pm)

		case viewer != "" && m.IsToolResult() && callers[m.ToolCallID] == viewer:
			out = append(out, providers.Message{Role: providers.RoleTool, ToolCallID: m.ToolCallID, Content: m.Content})

		default:
			content := m.Content
			if m.ToolCall != nil {
				content = strings.TrimSpace(content + "\n" + describeToolCall(*m.ToolCall))
			}
			if strings.TrimSpace(content) == "" {
				continue
			}
			out = append(out, providers.Message{Role: providers.RoleUser, Name: string(m.Speaker), Content: content})
		}
	}
	return out
}

func describeToolCall(tc ToolCallRecord) string {
	return fmt.Sprintf("(requested %s with %s)", tc.Name, tc.Arguments)
}
