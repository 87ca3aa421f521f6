// Package session keeps the chat history shown to a user across
// negotiation runs. Each run still owns its own transcript.
package session

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/google/uuid"
)

var (
	// ErrSessionBusy indicates a run is already in progress for the session
	ErrSessionBusy = errors.New("session already has a run in progress")

	// ErrSessionNotFound indicates the session was not found in the store
	ErrSessionNotFound = errors.New("session not found")
)

// UserName is the display name of prompts typed by the user.
const UserName = "User"

// UnknownName is shown for entries without a speaker.
const UnknownName = "Unknown Agent"

var avatars = map[string]string{
	UserName:                  "🧑‍💻",
	string(swarm.Coordinator): "📋",
	string(swarm.Muse):        "🎨",
	string(swarm.Critic):      "🧐",
	UnknownName:               "🤖",
}

// Avatar returns the display glyph for a speaker name.
func Avatar(name string) string {
	if a, ok := avatars[name]; ok {
		return a
	}
	return avatars[UnknownName]
}

// =============================================================================
// Entry
// =============================================================================

// Entry is one line of displayed history.
type Entry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// =============================================================================
// Session
// =============================================================================

// Session is the history of one user conversation.
type Session struct {
	mu sync.RWMutex

	id        string
	createdAt time.Time
	updatedAt time.Time
	history   []Entry
	runs      int

	running atomic.Bool
}

func NewSession() *Session {
	now := time.Now()
	return &Session{
		id:        uuid.New().String(),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Begin marks a run as started. It fails with ErrSessionBusy while another
// run holds the session.
func (s *Session) Begin() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	return nil
}

// End releases the session taken by Begin.
func (s *Session) End() {
	s.running.Store(false)
}

// AddPrompt records the user's prompt.
func (s *Session) AddPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Entry{Name: UserName, Content: prompt})
	s.updatedAt = time.Now()
}

// Append records the messages of a run in order. The seeded prompt is
// skipped since AddPrompt already holds it, and so are empty messages.
// It returns the entries added.
func (s *Session) Append(res *swarm.Result) []Entry {
	if res == nil {
		return nil
	}

	var added []Entry
	for _, m := range res.Transcript {
		if m.TurnIndex == 0 || strings.TrimSpace(m.Content) == "" {
			continue
		}
		name := string(m.Speaker)
		if name == "" {
			name = UnknownName
		}
		added = append(added, Entry{Name: name, Content: m.Content})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, added...)
	s.runs++
	s.updatedAt = time.Now()
	return added
}

// Messages returns a snapshot of the history.
func (s *Session) Messages() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Entry(nil), s.history...)
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Runs returns how many results were appended.
func (s *Session) Runs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
