package errors

import (
	"errors"
	"fmt"
)

// Kind identifies which part of a negotiation run produced an error.
type Kind int

const (
	// KindConfiguration is a missing or invalid credential or model binding.
	// It is fatal and surfaces before any network call.
	KindConfiguration Kind = iota + 1

	// KindTransientCall is a failure of a single model or tool call.
	KindTransientCall

	// KindUnknownTool is a tool call naming no registered tool.
	KindUnknownTool

	// KindUnauthorizedCaller is a tool call issued by a participant other than
	// the tool's declared caller.
	KindUnauthorizedCaller

	// KindInvalidArguments is a tool call whose arguments fail the schema.
	KindInvalidArguments

	// KindProtocolViolation is participant output that is neither free text
	// nor a well formed tool call.
	KindProtocolViolation
)

var kindNames = map[Kind]string{
	KindConfiguration:      "ConfigurationError",
	KindTransientCall:      "TransientCallError",
	KindUnknownTool:        "UnknownTool",
	KindUnauthorizedCaller: "UnauthorizedCaller",
	KindInvalidArguments:   "InvalidArguments",
	KindProtocolViolation:  "ProtocolViolation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownError"
}

// SwarmError carries a Kind plus the operation and participant involved.
type SwarmError struct {
	Kind        Kind
	Op          string
	Participant string
	Tier        ErrorTier
	Err         error
}

func (e *SwarmError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += " (" + e.Op
		if e.Participant != "" {
			msg += " by " + e.Participant
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SwarmError) Unwrap() error {
	return e.Err
}

// Is matches another SwarmError of the same Kind, so the sentinels below
// work with errors.Is.
func (e *SwarmError) Is(target error) bool {
	var se *SwarmError
	if errors.As(target, &se) {
		return se.Err == nil && se.Op == "" && e.Kind == se.Kind
	}
	return false
}

// Sentinels for errors.Is checks by kind.
var (
	ErrConfiguration      = &SwarmError{Kind: KindConfiguration}
	ErrTransientCall      = &SwarmError{Kind: KindTransientCall}
	ErrUnknownTool        = &SwarmError{Kind: KindUnknownTool}
	ErrUnauthorizedCaller = &SwarmError{Kind: KindUnauthorizedCaller}
	ErrInvalidArguments   = &SwarmError{Kind: KindInvalidArguments}
	ErrProtocolViolation  = &SwarmError{Kind: KindProtocolViolation}
)

// NewConfigurationError reports a setup problem detected before any call.
func NewConfigurationError(op string, err error) *SwarmError {
	return &SwarmError{Kind: KindConfiguration, Op: op, Tier: TierUserFixable, Err: err}
}

// NewConfigurationErrorf is NewConfigurationError with a formatted cause.
func NewConfigurationErrorf(op, format string, args ...any) *SwarmError {
	return NewConfigurationError(op, fmt.Errorf(format, args...))
}

// NewTransientCallError reports a failed outbound call and records the tier
// the default classifier assigns to it.
func NewTransientCallError(op, participant string, err error) *SwarmError {
	return &SwarmError{
		Kind:        KindTransientCall,
		Op:          op,
		Participant: participant,
		Tier:        defaultClassifier.Classify(err),
		Err:         err,
	}
}

// NewDispatchError reports a tool dispatch validation failure.
func NewDispatchError(kind Kind, tool, caller string, err error) *SwarmError {
	return &SwarmError{Kind: kind, Op: tool, Participant: caller, Tier: TierPermanent, Err: err}
}

// KindOf returns the Kind carried by err, or zero when err is not a SwarmError.
func KindOf(err error) Kind {
	var se *SwarmError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
