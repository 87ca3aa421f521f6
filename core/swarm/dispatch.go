package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
	"github.com/adalundhe/museswarm/core/tools"
)

// ToolFunc executes a tool with validated arguments. Failures are reported
// in the returned text.
type ToolFunc func(ctx context.Context, args map[string]any) string

// ToolSpec binds a tool to the participant allowed to request it and the
// participant that executes it.
type ToolSpec struct {
	Name        string
	Description string
	Schema      *tools.JSONSchema
	Caller      ParticipantID
	Executor    ParticipantID
	Func        ToolFunc
}

func (s ToolSpec) definition() providers.Tool {
	return providers.Tool{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.Schema.Map(),
	}
}

// Dispatcher validates and executes tool calls on behalf of the executor.
type Dispatcher struct {
	mu        sync.RWMutex
	specs     map[string]ToolSpec
	order     []string
	validator tools.Validator
	logger    *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithValidator(v tools.Validator) DispatcherOption {
	return func(d *Dispatcher) {
		d.validator = v
	}
}

func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		specs:     make(map[string]ToolSpec),
		validator: tools.DefaultValidator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds spec. Each tool name may be registered once.
func (d *Dispatcher) Register(spec ToolSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if spec.Func == nil {
		return fmt.Errorf("tool %s has no function", name)
	}
	if !spec.Caller.Valid() || !spec.Executor.Valid() {
		return fmt.Errorf("tool %s: caller and executor must be registered participants", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.specs[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	spec.Name = name
	d.specs[name] = spec
	d.order = append(d.order, name)
	return nil
}

// Tools returns the definitions of the tools caller may request.
func (d *Dispatcher) Tools(caller ParticipantID) []providers.Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var defs []providers.Tool
	for _, name := range d.order {
		spec := d.specs[name]
		if spec.Caller == caller {
			defs = append(defs, spec.definition())
		}
	}
	return defs
}

// Dispatch validates call and runs the tool. The outcome, including any
// validation failure, is returned as the executor's message at turnIndex.
func (d *Dispatcher) Dispatch(ctx context.Context, caller ParticipantID, call ToolCallRecord, turnIndex int) Message {
	msg := Message{
		Speaker:    Coordinator,
		TurnIndex:  turnIndex,
		ToolCallID: call.ID,
	}

	spec, args, err := d.validate(caller, call)
	if err != nil {
		d.logger.Warn("tool call rejected",
			slog.String("tool", call.Name),
			slog.String("caller", string(caller)),
			slog.String("kind", serrors.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		msg.Content = err.Error()
		return msg
	}

	msg.Speaker = spec.Executor
	msg.Content = spec.Func(ctx, args)

	d.logger.Info("tool dispatched",
		slog.String("tool", spec.Name),
		slog.String("caller", string(caller)),
		slog.String("executor", string(spec.Executor)),
		slog.Int("turn", turnIndex),
	)
	return msg
}

// validate checks, in order, that the tool exists, that caller may use it,
// and that the arguments satisfy its schema.
func (d *Dispatcher) validate(caller ParticipantID, call ToolCallRecord) (ToolSpec, map[string]any, error) {
	d.mu.RLock()
	spec, ok := d.specs[call.Name]
	d.mu.RUnlock()

	if !ok {
		return ToolSpec{}, nil, serrors.NewDispatchError(serrors.KindUnknownTool, call.Name, string(caller),
			fmt.Errorf("tool %q is not registered", call.Name))
	}

	if caller != spec.Caller {
		return ToolSpec{}, nil, serrors.NewDispatchError(serrors.KindUnauthorizedCaller, call.Name, string(caller),
			fmt.Errorf("only %s may call %s", spec.Caller, spec.Name))
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return ToolSpec{}, nil, serrors.NewDispatchError(serrors.KindInvalidArguments, call.Name, string(caller),
				fmt.Errorf("arguments are not a JSON object: %w", err))
		}
	}

	if err := d.validator.Validate(args, spec.Schema); err != nil {
		return ToolSpec{}, nil, serrors.NewDispatchError(serrors.KindInvalidArguments, call.Name, string(caller), err)
	}

	return spec, args, nil
}
