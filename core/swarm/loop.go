package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
)

var ErrEmptyPrompt = errors.New("prompt must not be empty")

// State is the phase of a negotiation run.
type State int32

const (
	StateIdle State = iota
	StateAwaitingTurn
	StateExecutingTool
	StateTerminated
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateAwaitingTurn:  "awaiting_turn",
	StateExecutingTool: "executing_tool",
	StateTerminated:    "terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

var validTransitions = map[State][]State{
	StateIdle:          {StateAwaitingTurn, StateTerminated},
	StateAwaitingTurn:  {StateExecutingTool, StateTerminated},
	StateExecutingTool: {StateAwaitingTurn, StateTerminated},
}

func (s State) CanTransitionTo(target State) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TerminationReason explains why a run stopped.
type TerminationReason string

const (
	ReasonRoundLimit          TerminationReason = "round limit"
	ReasonExplicitTermination TerminationReason = "explicit termination"
	ReasonAborted             TerminationReason = "aborted"
)

// Result is the outcome of one run. Transcript is chronological.
type Result struct {
	Transcript []Message         `json:"transcript"`
	Reason     TerminationReason `json:"reason"`
	Turns      int               `json:"turns"`
}

// Loop drives turn-taking between the roster's generative participants
// under a round cap.
type Loop struct {
	cfg        SessionConfig
	roster     *Roster
	dispatcher *Dispatcher
	selector   Selector
	logger     *slog.Logger
	sessionID  string

	onMessage func(Message)
	onState   func(from, to State)

	runMu sync.Mutex
	state atomic.Int32
}

type LoopOption func(*Loop)

func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithSelector overrides the selection policy named in the config.
func WithSelector(s Selector) LoopOption {
	return func(l *Loop) {
		l.selector = s
	}
}

// WithSessionID tags every log record of the loop.
func WithSessionID(id string) LoopOption {
	return func(l *Loop) {
		l.sessionID = id
	}
}

// WithMessageObserver is called with every message as it is appended.
func WithMessageObserver(fn func(Message)) LoopOption {
	return func(l *Loop) {
		l.onMessage = fn
	}
}

// WithStateObserver is called on every state transition.
func WithStateObserver(fn func(from, to State)) LoopOption {
	return func(l *Loop) {
		l.onState = fn
	}
}

// NewLoop checks cfg and the roster before any model call is made.
func NewLoop(cfg SessionConfig, roster *Roster, dispatcher *Dispatcher, opts ...LoopOption) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if roster == nil {
		return nil, serrors.NewConfigurationErrorf("new loop", "roster is required")
	}
	for _, id := range []ParticipantID{Muse, Critic} {
		if !roster.Has(id) {
			return nil, serrors.NewConfigurationErrorf("new loop", "roster has no %s", id)
		}
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}

	l := &Loop{
		cfg:        cfg,
		roster:     roster,
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sessionID != "" {
		l.logger = l.logger.With(slog.String("session_id", l.sessionID))
	}

	if l.selector == nil {
		switch cfg.Selection {
		case SelectManager:
			if roster.Manager() == nil {
				return nil, serrors.NewConfigurationErrorf("new loop", "manager selection needs a manager provider")
			}
			l.selector = NewManagerSelector(roster.Manager(), cfg.ManagerBinding.Model, roster, cfg.TurnTimeout, l.logger)
		default:
			l.selector = RoundRobin{}
		}
	}

	return l, nil
}

// State returns the current phase.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run negotiates over prompt until a termination condition holds. A failed
// model call aborts the run: the partial result is returned together with a
// TransientCallError.
func (l *Loop) Run(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	l.runMu.Lock()
	defer l.runMu.Unlock()

	l.state.Store(int32(StateIdle))

	if l.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Budget)
		defer cancel()
	}

	t := NewTranscript()
	seed, err := NewMessage(Coordinator, prompt, 0)
	if err != nil {
		return nil, err
	}
	l.append(t, seed)
	l.transition(StateAwaitingTurn)

	var followUp ParticipantID
	for {
		if reason, done := l.terminationReason(t); done {
			l.transition(StateTerminated)
			l.logger.Info("negotiation terminated",
				slog.String("reason", string(reason)),
				slog.Int("turn", t.Len()-1),
				slog.Int("generative_turns", t.GenerativeTurns()),
			)
			return l.result(t, reason), nil
		}

		if err := ctx.Err(); err != nil {
			return l.abort(t, "", err)
		}

		speaker := followUp
		followUp = ""
		if speaker == "" {
			speaker = l.selector.Next(ctx, t)
		}
		participant, ok := l.roster.Get(speaker)
		if !ok || !speaker.Generative() {
			fallback := RoundRobin{}.Next(ctx, t)
			l.logger.Warn("selected speaker cannot take a turn",
				slog.String("speaker", string(speaker)),
				slog.String("fallback", string(fallback)),
			)
			speaker = fallback
			participant, _ = l.roster.Get(speaker)
		}

		msg, err := l.takeTurn(ctx, participant, t)
		if err != nil {
			return l.abort(t, speaker, err)
		}
		l.append(t, msg)

		if msg.ToolCall != nil {
			l.transition(StateExecutingTool)
			toolCtx, cancel := l.callContext(ctx)
			reply := l.dispatcher.Dispatch(toolCtx, speaker, *msg.ToolCall, t.NextIndex())
			cancel()
			l.append(t, reply)
			l.transition(StateAwaitingTurn)
			followUp = speaker
		}
	}
}

func (l *Loop) takeTurn(ctx context.Context, p *Participant, t *Transcript) (Message, error) {
	callCtx, cancel := l.callContext(ctx)
	defer cancel()

	turn := t.NextIndex()
	req := &providers.Request{
		Model:        p.Binding.Model,
		SystemPrompt: p.SystemPrompt,
		Messages:     historyFor(p.ID, t.Messages()),
		MaxTokens:    l.cfg.MaxTokens,
		Temperature:  l.cfg.Temperature,
	}

	if p.Can(CapToolCall) {
		req.Tools = l.dispatcher.Tools(p.ID)
	}

	start := time.Now()
	resp, err := p.Provider.Generate(callCtx, req)
	msg := Message{Speaker: p.ID, TurnIndex: turn}

	if err != nil {
		var perr *providers.ProtocolError
		if errors.As(err, &perr) {
			l.protocolViolation(p.ID, turn, perr)
			msg.Content = perr.Raw
			return msg, nil
		}
		return Message{}, err
	}

	msg.Content = resp.Content
	msg.ToolCall = l.extractToolCall(p.ID, turn, resp)

	l.logger.Info("turn completed",
		slog.String("speaker", string(p.ID)),
		slog.Int("turn", turn),
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.Bool("tool_call", msg.ToolCall != nil),
	)
	return msg, nil
}

// extractToolCall returns the first well-formed tool request in resp, either
// native or written as a text instruction. Malformed requests leave the
// content to be read as free text.
func (l *Loop) extractToolCall(speaker ParticipantID, turn int, resp *providers.Response) *ToolCallRecord {
	if len(resp.ToolCalls) > 0 {
		first := resp.ToolCalls[0]
		if strings.TrimSpace(first.Name) == "" {
			l.protocolViolation(speaker, turn, fmt.Errorf("tool call without a name"))
			return nil
		}
		if len(resp.ToolCalls) > 1 {
			l.logger.Warn("extra tool calls ignored",
				slog.String("speaker", string(speaker)),
				slog.Int("turn", turn),
				slog.Int("count", len(resp.ToolCalls)),
			)
		}
		id := first.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", turn)
		}
		return &ToolCallRecord{ID: id, Name: first.Name, Arguments: first.Arguments}
	}

	name, args, ok, err := parseToolInstruction(resp.Content)
	if err != nil {
		l.protocolViolation(speaker, turn, err)
		return nil
	}
	if !ok {
		return nil
	}
	return &ToolCallRecord{ID: fmt.Sprintf("call_%d", turn), Name: name, Arguments: args}
}

func (l *Loop) protocolViolation(speaker ParticipantID, turn int, cause error) {
	err := &serrors.SwarmError{
		Kind:        serrors.KindProtocolViolation,
		Op:          "parse turn",
		Participant: string(speaker),
		Tier:        serrors.TierPermanent,
		Err:         cause,
	}
	l.logger.Warn("treating output as free text",
		slog.String("speaker", string(speaker)),
		slog.Int("turn", turn),
		slog.String("error", err.Error()),
	)
}

// terminationReason checks the round cap before the termination token. Only
// the latest message of a participant that can terminate is searched for the
// token.
func (l *Loop) terminationReason(t *Transcript) (TerminationReason, bool) {
	if t.GenerativeTurns() >= l.cfg.RoundCap {
		return ReasonRoundLimit, true
	}
	for _, id := range l.roster.IDs() {
		p, _ := l.roster.Get(id)
		if !p.Can(CapTerminate) {
			continue
		}
		if last, ok := t.Last(id); ok && last.Contains(l.cfg.TerminationToken) {
			return ReasonExplicitTermination, true
		}
	}
	return "", false
}

func (l *Loop) abort(t *Transcript, speaker ParticipantID, cause error) (*Result, error) {
	l.transition(StateTerminated)
	err := serrors.NewTransientCallError("generate", string(speaker), cause)
	l.logger.Error("negotiation aborted",
		slog.String("speaker", string(speaker)),
		slog.Int("turn", t.NextIndex()),
		slog.String("tier", err.Tier.String()),
		slog.String("error", cause.Error()),
	)
	return l.result(t, ReasonAborted), err
}

func (l *Loop) result(t *Transcript, reason TerminationReason) *Result {
	return &Result{
		Transcript: t.Messages(),
		Reason:     reason,
		Turns:      t.GenerativeTurns(),
	}
}

func (l *Loop) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.TurnTimeout > 0 {
		return context.WithTimeout(ctx, l.cfg.TurnTimeout)
	}
	return context.WithCancel(ctx)
}

func (l *Loop) append(t *Transcript, m Message) {
	if err := t.Append(m); err != nil {
		l.logger.Error("transcript append failed", slog.String("error", err.Error()))
		return
	}
	l.logger.Debug("message appended",
		slog.String("speaker", string(m.Speaker)),
		slog.Int("turn", m.TurnIndex),
	)
	if l.onMessage != nil {
		l.onMessage(m.clone())
	}
}

func (l *Loop) transition(to State) {
	from := l.State()
	if !from.CanTransitionTo(to) {
		l.logger.Error("invalid state transition",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}
	l.state.Store(int32(to))
	l.logger.Debug("state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	if l.onState != nil {
		l.onState(from, to)
	}
}
