// Package swarm runs the bounded negotiation between a Muse and a Critic,
// with a Coordinator that seeds the conversation and executes tools.
package swarm

import (
	"github.com/adalundhe/museswarm/core/providers"
)

// ParticipantID names a speaker. The set is closed.
type ParticipantID string

const (
	Coordinator ParticipantID = "Project_Manager"
	Muse        ParticipantID = "Creative_Muse"
	Critic      ParticipantID = "Critic"
)

func (p ParticipantID) Valid() bool {
	switch p {
	case Coordinator, Muse, Critic:
		return true
	}
	return false
}

// Generative reports whether the participant speaks through a model.
func (p ParticipantID) Generative() bool {
	return p == Muse || p == Critic
}

func (p ParticipantID) String() string {
	return string(p)
}

// Capability is a bit set of what a participant may do.
type Capability uint8

const (
	CapReply Capability = 1 << iota
	CapToolCall
	CapTerminate
	CapExecuteTools
)

// DefaultCapabilities returns the fixed capability set of each participant.
func DefaultCapabilities(id ParticipantID) Capability {
	switch id {
	case Coordinator:
		return CapExecuteTools
	case Muse:
		return CapReply | CapToolCall | CapTerminate
	case Critic:
		return CapReply
	}
	return 0
}

// Participant is one member of the roster. Only generative participants
// carry a provider.
type Participant struct {
	ID           ParticipantID
	Capabilities Capability
	Binding      ModelBinding
	SystemPrompt string
	Provider     providers.Provider
}

func (p *Participant) Can(c Capability) bool {
	return p.Capabilities&c == c
}
