package engine

import (
	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/providers"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/adalundhe/museswarm/core/tools"
)

// Binding converts a configured binding to the provider form.
func Binding(b config.BindingConfig) providers.Binding {
	return providers.Binding{
		Provider:   providers.ProviderType(b.Provider),
		Model:      b.Model,
		BaseURL:    b.BaseURL,
		Credential: b.Credential,
	}
}

// SessionConfig derives the per-run loop configuration and the system
// prompt of each generative participant.
func SessionConfig(cfg *config.Config) (swarm.SessionConfig, map[swarm.ParticipantID]string) {
	temperature := cfg.LLM.Temperature

	sc := swarm.SessionConfig{
		RoundCap: cfg.Swarm.RoundCap,
		Bindings: map[swarm.ParticipantID]swarm.ModelBinding{
			swarm.Muse:   Binding(cfg.Agents.Muse.Binding),
			swarm.Critic: Binding(cfg.Agents.Critic.Binding),
		},
		TerminationToken: cfg.Swarm.TerminationToken,
		Selection:        swarm.SelectionPolicy(cfg.Swarm.Selection),
		TurnTimeout:      cfg.Swarm.TurnTimeout,
		Budget:           cfg.Swarm.Budget,
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      &temperature,
	}
	if sc.Selection == swarm.SelectManager {
		manager := Binding(cfg.Agents.Manager)
		sc.ManagerBinding = &manager
	}

	prompts := map[swarm.ParticipantID]string{
		swarm.Muse:   cfg.Agents.Muse.SystemPrompt,
		swarm.Critic: cfg.Agents.Critic.SystemPrompt,
	}
	return sc, prompts
}

func ProfileConfig(cfg *config.Config) tools.ProfileConfig {
	return tools.ProfileConfig{
		Binding:   Binding(cfg.Tool.Binding),
		Header:    cfg.Tool.Header,
		Template:  cfg.Tool.Template,
		MaxTokens: cfg.LLM.MaxTokens,
	}
}
