package swarm

import (
	"context"
	"fmt"

	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
)

// ProviderResolver returns a ready client for a binding. It is expected to
// resolve credentials. providers.Registry.Get satisfies it.
type ProviderResolver func(ctx context.Context, binding ModelBinding) (providers.Provider, error)

// Roster is the fixed set of participants of a session, Coordinator first.
type Roster struct {
	members map[ParticipantID]*Participant
	order   []ParticipantID
	manager providers.Provider
}

// NewRoster returns a roster holding only the Coordinator.
func NewRoster() *Roster {
	r := &Roster{members: make(map[ParticipantID]*Participant)}
	r.members[Coordinator] = &Participant{ID: Coordinator, Capabilities: DefaultCapabilities(Coordinator)}
	r.order = append(r.order, Coordinator)
	return r
}

// Add registers a generative participant.
func (r *Roster) Add(p *Participant) error {
	if p == nil || !p.ID.Generative() {
		return fmt.Errorf("only generative participants can be added")
	}
	if _, exists := r.members[p.ID]; exists {
		return fmt.Errorf("participant %s already registered", p.ID)
	}
	if p.Provider == nil {
		return fmt.Errorf("participant %s has no provider", p.ID)
	}
	if p.Capabilities == 0 {
		p.Capabilities = DefaultCapabilities(p.ID)
	}
	r.members[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// SetManager installs the provider used by manager-mediated selection.
func (r *Roster) SetManager(p providers.Provider) {
	r.manager = p
}

func (r *Roster) Manager() providers.Provider {
	return r.manager
}

func (r *Roster) Get(id ParticipantID) (*Participant, bool) {
	p, ok := r.members[id]
	return p, ok
}

func (r *Roster) Has(id ParticipantID) bool {
	_, ok := r.members[id]
	return ok
}

// IDs returns the registered participants in registration order.
func (r *Roster) IDs() []ParticipantID {
	return append([]ParticipantID(nil), r.order...)
}

// BuildRoster resolves a provider for every binding in cfg before any model
// call is made. Any failure is a ConfigurationError.
func BuildRoster(ctx context.Context, cfg SessionConfig, prompts map[ParticipantID]string, resolve ProviderResolver) (*Roster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if resolve == nil {
		return nil, serrors.NewConfigurationErrorf("build roster", "no provider resolver")
	}

	r := NewRoster()
	for _, id := range []ParticipantID{Muse, Critic} {
		binding := cfg.Bindings[id]
		provider, err := resolve(ctx, binding)
		if err != nil {
			return nil, serrors.NewConfigurationError("build roster", fmt.Errorf("%s: %w", id, err))
		}
		if err := r.Add(&Participant{
			ID:           id,
			Binding:      binding,
			SystemPrompt: prompts[id],
			Provider:     provider,
		}); err != nil {
			return nil, serrors.NewConfigurationError("build roster", err)
		}
	}

	if cfg.Selection == SelectManager {
		provider, err := resolve(ctx, *cfg.ManagerBinding)
		if err != nil {
			return nil, serrors.NewConfigurationError("build roster", fmt.Errorf("manager: %w", err))
		}
		r.SetManager(provider)
	}

	return r, nil
}
