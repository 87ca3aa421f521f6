package swarm

import (
	"fmt"
	"strings"
	"time"

	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
)

// ModelBinding names the endpoint, model and credential of a participant.
type ModelBinding = providers.Binding

// SelectionPolicy decides who speaks next.
type SelectionPolicy string

const (
	SelectRoundRobin SelectionPolicy = "round_robin"
	SelectManager    SelectionPolicy = "manager"
)

// SessionConfig is the per-run configuration of a negotiation.
type SessionConfig struct {
	RoundCap         int
	Bindings         map[ParticipantID]ModelBinding
	TerminationToken string
	Selection        SelectionPolicy

	// ManagerBinding is required when Selection is SelectManager.
	ManagerBinding *ModelBinding

	TurnTimeout time.Duration
	Budget      time.Duration
	MaxTokens   int
	Temperature *float64
}

// Validate reports a ConfigurationError for values the loop cannot run with.
func (c SessionConfig) Validate() error {
	if c.RoundCap < 1 {
		return serrors.NewConfigurationErrorf("session config", "round cap must be at least 1, got %d", c.RoundCap)
	}
	if strings.TrimSpace(c.TerminationToken) == "" {
		return serrors.NewConfigurationErrorf("session config", "termination token must not be empty")
	}
	switch c.Selection {
	case "", SelectRoundRobin:
	case SelectManager:
		if c.ManagerBinding == nil {
			return serrors.NewConfigurationErrorf("session config", "manager selection needs a manager binding")
		}
		if err := validateBinding(*c.ManagerBinding); err != nil {
			return serrors.NewConfigurationError("session config", fmt.Errorf("manager: %w", err))
		}
	default:
		return serrors.NewConfigurationErrorf("session config", "unknown selection policy %q", c.Selection)
	}
	if c.TurnTimeout < 0 || c.Budget < 0 {
		return serrors.NewConfigurationErrorf("session config", "timeouts must not be negative")
	}
	for _, id := range []ParticipantID{Muse, Critic} {
		b, ok := c.Bindings[id]
		if !ok {
			return serrors.NewConfigurationErrorf("session config", "no model binding for %s", id)
		}
		if err := validateBinding(b); err != nil {
			return serrors.NewConfigurationError("session config", fmt.Errorf("%s: %w", id, err))
		}
	}
	for id := range c.Bindings {
		if !id.Generative() {
			return serrors.NewConfigurationErrorf("session config", "%q cannot be bound to a model", id)
		}
	}
	return nil
}

func validateBinding(b ModelBinding) error {
	if !b.Provider.Valid() {
		return fmt.Errorf("unknown provider %q", b.Provider)
	}
	if strings.TrimSpace(b.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if strings.TrimSpace(b.Credential) == "" {
		return fmt.Errorf("credential is required")
	}
	return nil
}
