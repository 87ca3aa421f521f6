package swarm

import (
	"fmt"
	"strings"
)

// ToolCallRecord is a tool request carried on the message that issued it.
// Arguments is the raw argument text as produced by the model.
type ToolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a Transcript. TurnIndex is its position in the
// transcript, starting at zero for the seeded prompt.
type Message struct {
	Speaker   ParticipantID   `json:"speaker"`
	Content   string          `json:"content"`
	TurnIndex int             `json:"turn_index"`
	ToolCall  *ToolCallRecord `json:"tool_call,omitempty"`

	// ToolCallID links a Coordinator tool result to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// NewMessage validates the required fields of a message.
func NewMessage(speaker ParticipantID, content string, turnIndex int) (Message, error) {
	if !speaker.Valid() {
		return Message{}, fmt.Errorf("unregistered speaker %q", speaker)
	}
	if turnIndex < 0 {
		return Message{}, fmt.Errorf("negative turn index %d", turnIndex)
	}
	return Message{Speaker: speaker, Content: content, TurnIndex: turnIndex}, nil
}

// IsToolResult reports whether the message answers a tool call.
func (m Message) IsToolResult() bool {
	return m.ToolCallID != ""
}

// Contains reports whether the content holds token verbatim.
func (m Message) Contains(token string) bool {
	return token != "" && strings.Contains(m.Content, token)
}

func (m Message) clone() Message {
	if m.ToolCall != nil {
		tc := *m.ToolCall
		m.ToolCall = &tc
	}
	return m
}
