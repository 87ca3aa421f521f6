package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/providers"
)

const (
	ProfileToolName        = "generate_character_profile"
	ProfileToolDescription = "Generate a detailed profile for a fictional character."
	ProfileThemeDesc       = "A brief theme or concept for the character, e.g., 'steampunk inventor' or 'rogue AI'."

	emptyProfileText = "(the character generator returned no text)"
)

// ProfileSchema requires a single non-empty theme string.
var ProfileSchema = &JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"theme": map[string]any{
			"type":        "string",
			"description": ProfileThemeDesc,
			"minLength":   1,
		},
	},
	Required: []string{"theme"},
}

// ProviderFactory returns a client for a binding. providers.Registry.Get
// satisfies it.
type ProviderFactory func(ctx context.Context, binding providers.Binding) (providers.Provider, error)

// ProfileGenerator synthesizes a fictional character from a theme with one
// model call of its own, under its own binding and credential.
type ProfileGenerator struct {
	Binding     providers.Binding
	Header      string
	Template    string
	MaxTokens   int
	NewProvider ProviderFactory

	logger *slog.Logger
}

type ProfileConfig struct {
	Binding   providers.Binding
	Header    string
	Template  string
	MaxTokens int
}

func NewProfileGenerator(cfg ProfileConfig, factory ProviderFactory, logger *slog.Logger) *ProfileGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Header == "" {
		cfg.Header = config.DefaultProfileHeader
	}
	if cfg.Template == "" {
		cfg.Template = config.DefaultProfileTemplate
	}
	return &ProfileGenerator{
		Binding:     cfg.Binding,
		Header:      cfg.Header,
		Template:    cfg.Template,
		MaxTokens:   cfg.MaxTokens,
		NewProvider: factory,
		logger:      logger,
	}
}

// Generate never fails: every outcome, error or not, is returned as text
// beginning with the header line.
func (g *ProfileGenerator) Generate(ctx context.Context, theme string) string {
	g.logger.Info("tool executed",
		slog.String("tool", ProfileToolName),
		slog.String("theme", theme),
	)

	label := clientLabel(g.Binding)

	if g.NewProvider == nil {
		return g.format(fmt.Sprintf("Error initializing %s client for tool: no client factory configured", label))
	}

	provider, err := g.NewProvider(ctx, g.Binding)
	if err != nil {
		g.logger.Warn("tool client unavailable", slog.String("tool", ProfileToolName), slog.String("error", err.Error()))
		return g.format(fmt.Sprintf("Error initializing %s client for tool: %v", label, err))
	}

	resp, err := provider.Generate(ctx, &providers.Request{
		Model:     g.Binding.Model,
		MaxTokens: g.MaxTokens,
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: g.prompt(theme)},
		},
	})
	if err != nil {
		g.logger.Warn("tool request failed", slog.String("tool", ProfileToolName), slog.String("error", err.Error()))
		return g.format(fmt.Sprintf("An error occurred inside the character generator tool: %v", err))
	}

	if strings.TrimSpace(resp.Content) == "" {
		return g.format(emptyProfileText)
	}
	return g.format(resp.Content)
}

// Run adapts Generate to validated tool arguments.
func (g *ProfileGenerator) Run(ctx context.Context, args map[string]any) string {
	theme, _ := args["theme"].(string)
	return g.Generate(ctx, theme)
}

func (g *ProfileGenerator) prompt(theme string) string {
	return strings.Replace(g.Template, config.ThemePlaceholder, theme, 1)
}

func (g *ProfileGenerator) format(body string) string {
	return g.Header + "\n" + body
}

func clientLabel(b providers.Binding) string {
	if strings.Contains(strings.ToLower(b.BaseURL), "groq") {
		return "Groq"
	}
	switch b.Provider {
	case providers.ProviderTypeOpenAI:
		return "OpenAI"
	case providers.ProviderTypeAnthropic:
		return "Anthropic"
	case providers.ProviderTypeGoogle:
		return "Google"
	}
	return string(b.Provider)
}
