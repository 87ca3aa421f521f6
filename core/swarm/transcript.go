package swarm

import "fmt"

// Transcript is the append-only record of one negotiation run. It is owned
// by a single Loop.Run call and handed out only as copies.
type Transcript struct {
	messages []Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds m, which must carry the next turn index.
func (t *Transcript) Append(m Message) error {
	if !m.Speaker.Valid() {
		return fmt.Errorf("unregistered speaker %q", m.Speaker)
	}
	if m.TurnIndex != len(t.messages) {
		return fmt.Errorf("turn index %d out of order, expected %d", m.TurnIndex, len(t.messages))
	}
	t.messages = append(t.messages, m.clone())
	return nil
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// NextIndex is the turn index the next appended message must carry.
func (t *Transcript) NextIndex() int {
	return len(t.messages)
}

// Messages returns a snapshot of the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.clone()
	}
	return out
}

// GenerativeTurns counts messages spoken by generative participants.
func (t *Transcript) GenerativeTurns() int {
	n := 0
	for _, m := range t.messages {
		if m.Speaker.Generative() {
			n++
		}
	}
	return n
}

// Last returns the most recent message spoken by speaker.
func (t *Transcript) Last(speaker ParticipantID) (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Speaker == speaker {
			return t.messages[i].clone(), true
		}
	}
	return Message{}, false
}

// LastGenerative returns the most recent message of a generative speaker.
func (t *Transcript) LastGenerative() (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Speaker.Generative() {
			return t.messages[i].clone(), true
		}
	}
	return Message{}, false
}
