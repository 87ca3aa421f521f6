package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	GroqBaseURL = "https://api.groq.com/openai/v1"

	ReasoningModel = "qwen/qwen3-32b"
	CreativeModel  = "llama-3.3-70b-versatile"

	DefaultTerminationToken = "TERMINATE"
	DefaultRoundCap         = 10

	SelectionRoundRobin = "round_robin"
	SelectionManager    = "manager"
)

const DefaultMusePrompt = "You are a creative muse. Your goal is to generate and refine creative concepts based on feedback. " +
	"Incorporate the Critic's suggestions to improve your ideas. " +
	"Only after the Critic has formally approved your idea should you provide a final summary and then say the word 'TERMINATE'."

const DefaultCriticPrompt = "You are a constructive film critic. Your job is to review ideas and suggest improvements. " +
	"Your feedback should be concise and limited to 3-4 key bullet points. " +
	"After providing your feedback, you MUST ask the Creative_Muse to provide a revised version incorporating your feedback. " +
	"Do not approve an idea easily; always find something to improve."

const DefaultProfileHeader = "--- Character Profile ---"

// ThemePlaceholder marks where the tool template embeds the theme. Nothing
// else in a template is interpreted.
const ThemePlaceholder = "{theme}"

const DefaultProfileTemplate = "You are a character creation engine. Generate a single, detailed fictional character profile " +
	"based ONLY on the following theme: '" + ThemePlaceholder + "'. Include a unique name, a compelling backstory (2-3 sentences), " +
	"and a clear motivation. Format the output with clear headings for 'Name', 'Backstory', and 'Motivation'."

func DefaultConfig() *Config {
	creative := BindingConfig{
		Provider:   "openai",
		Model:      CreativeModel,
		BaseURL:    GroqBaseURL,
		Credential: "groq",
	}
	reasoning := BindingConfig{
		Provider:   "openai",
		Model:      ReasoningModel,
		BaseURL:    GroqBaseURL,
		Credential: "groq",
	}
	specialist := reasoning
	specialist.Credential = "groq_specialist"

	return &Config{
		LLM: LLMConfig{
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Swarm: SwarmConfig{
			RoundCap:         DefaultRoundCap,
			TerminationToken: DefaultTerminationToken,
			Selection:        SelectionRoundRobin,
			TurnTimeout:      60 * time.Second,
			Budget:           5 * time.Minute,
		},
		Agents: AgentsConfig{
			Muse:    AgentConfig{Binding: creative, SystemPrompt: DefaultMusePrompt},
			Critic:  AgentConfig{Binding: creative, SystemPrompt: DefaultCriticPrompt},
			Manager: reasoning,
		},
		Tool: ToolConfig{
			Binding:  specialist,
			Header:   DefaultProfileHeader,
			Template: DefaultProfileTemplate,
		},
		Server: ServerConfig{
			Addr:        ":1323",
			MaxSessions: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects values the negotiation loop cannot run with.
func (c *Config) Validate() error {
	if c.Swarm.RoundCap < 1 {
		return fmt.Errorf("swarm.round_cap must be at least 1, got %d", c.Swarm.RoundCap)
	}
	if strings.TrimSpace(c.Swarm.TerminationToken) == "" {
		return fmt.Errorf("swarm.termination_token must not be empty")
	}
	switch c.Swarm.Selection {
	case SelectionRoundRobin, SelectionManager:
	default:
		return fmt.Errorf("swarm.selection must be %s or %s, got %q", SelectionRoundRobin, SelectionManager, c.Swarm.Selection)
	}
	if c.Swarm.TurnTimeout < 0 || c.Swarm.Budget < 0 {
		return fmt.Errorf("swarm timeouts must not be negative")
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("server.max_sessions must be at least 1, got %d", c.Server.MaxSessions)
	}
	if strings.Count(c.Tool.Template, ThemePlaceholder) != 1 {
		return fmt.Errorf("tool.template must contain %s exactly once", ThemePlaceholder)
	}
	bindings := map[string]BindingConfig{
		"agents.muse":    c.Agents.Muse.Binding,
		"agents.critic":  c.Agents.Critic.Binding,
		"agents.manager": c.Agents.Manager,
		"tool":           c.Tool.Binding,
	}
	for name, b := range bindings {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (b BindingConfig) Validate() error {
	switch b.Provider {
	case "openai", "anthropic", "google":
	default:
		return fmt.Errorf("provider must be openai, anthropic or google, got %q", b.Provider)
	}
	if strings.TrimSpace(b.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if strings.TrimSpace(b.Credential) == "" {
		return fmt.Errorf("credential is required")
	}
	return nil
}
