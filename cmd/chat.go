package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/adalundhe/museswarm/core/engine"
	"github.com/adalundhe/museswarm/core/session"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the swarm",
	Long: `Open a terminal chat. Each prompt starts a new negotiation; the history of
the session is kept in memory until you quit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

type runner interface {
	Run(ctx context.Context, prompt string, opts engine.RunOptions) (*swarm.Result, error)
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger := app.logger
	if app.manager.Get().Log.File == "" {
		// stderr would draw over the terminal UI
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	eng := engine.New(app.manager.Get, app.creds, engine.WithLogger(logger))
	defer eng.Close()

	relay := &relay{}
	p := tea.NewProgram(newChatModel(cmd.Context(), eng, session.NewSession(), relay), tea.WithAltScreen())
	relay.set(p.Send)

	_, err := p.Run()
	relay.cancelRun()
	return err
}

// relay forwards messages from a running negotiation into the program and
// holds the cancel func of that run.
type relay struct {
	mu     sync.Mutex
	send   func(tea.Msg)
	cancel context.CancelFunc
}

func (r *relay) set(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

func (r *relay) forward(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (r *relay) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel = cancel
}

func (r *relay) cancelRun() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type liveMsg struct {
	message swarm.Message
}

type runDoneMsg struct {
	prompt string
	result *swarm.Result
	err    error
}

type chatModel struct {
	ctx    context.Context
	runner runner
	sess   *session.Session
	relay  *relay
	theme  theme

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	blocks []string
	busy   bool
	status string
	failed bool
	width  int
	height int
}

func newChatModel(ctx context.Context, r runner, sess *session.Session, rl *relay) chatModel {
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Enter your creative prompt for the agent swarm..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		ctx:      ctx,
		runner:   r,
		sess:     sess,
		relay:    rl,
		theme:    newTheme(),
		input:    input,
		timeline: viewport.New(80, 20),
		spinner:  sp,
		status:   "enter a prompt · esc to quit",
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.relay.cancelRun()
			return m, tea.Quit
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			if m.busy || prompt == "" {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.failed = false
			m.status = "The agent swarm is thinking..."
			m.appendBlock(m.theme.renderEntry(session.UserName, prompt, m.contentWidth()))
			return m, tea.Batch(m.spinner.Tick, m.runCmd(prompt))
		}

	case liveMsg:
		if msg.message.TurnIndex > 0 {
			if block := m.theme.renderMessage(msg.message, m.contentWidth()); block != "" {
				m.appendBlock(block)
			}
		}
		return m, nil

	case runDoneMsg:
		m.busy = false
		m.relay.cancelRun()
		if msg.result == nil {
			m.failed = true
			m.status = fmt.Sprintf("Run failed: %v", msg.err)
			return m, nil
		}
		m.sess.AddPrompt(msg.prompt)
		m.sess.Append(msg.result)
		m.failed = msg.err != nil
		m.status = outcomeText(msg.result, msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.timeline, cmd = m.timeline.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) runCmd(prompt string) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.relay.setCancel(cancel)

	r := m.runner
	rl := m.relay
	id := m.sess.ID()
	return func() tea.Msg {
		res, err := r.Run(ctx, prompt, engine.RunOptions{
			SessionID: id,
			OnMessage: func(msg swarm.Message) { rl.forward(liveMsg{message: msg}) },
		})
		return runDoneMsg{prompt: prompt, result: res, err: err}
	}
}

func (m *chatModel) appendBlock(block string) {
	m.blocks = append(m.blocks, block)
	m.refresh()
}

func (m *chatModel) refresh() {
	m.timeline.SetContent(strings.Join(m.blocks, "\n\n"))
	m.timeline.GotoBottom()
}

func (m *chatModel) resize() {
	m.input.Width = max(m.width-8, 10)
	m.timeline.Width = m.width
	m.timeline.Height = max(m.height-6, 3)
}

func (m chatModel) contentWidth() int {
	if m.width <= 0 {
		return 0
	}
	return max(m.width-4, 20)
}

func (m chatModel) View() string {
	status := m.theme.status.Render(m.status)
	if m.failed {
		status = m.theme.errorStatus.Render(m.status)
	}
	if m.busy {
		status = m.spinner.View() + " " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.title.Render("🎨 Creative Muse Swarm"),
		m.timeline.View(),
		status,
		m.theme.input.Render(m.input.View()),
	)
}
