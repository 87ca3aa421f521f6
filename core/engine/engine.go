// Package engine assembles a negotiation run from the effective
// configuration: provider clients, the profile tool and the loop.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/adalundhe/museswarm/core/config"
	serrors "github.com/adalundhe/museswarm/core/errors"
	"github.com/adalundhe/museswarm/core/providers"
	"github.com/adalundhe/museswarm/core/swarm"
	"github.com/adalundhe/museswarm/core/tools"
)

// ConfigSource returns the configuration a run should use. Manager.Get
// satisfies it, so every run sees the latest reload.
type ConfigSource func() *config.Config

// RunOptions adjusts a single run.
type RunOptions struct {
	SessionID string

	// RoundCap overrides swarm.round_cap when positive.
	RoundCap int

	// OnMessage receives each message as it is appended.
	OnMessage func(swarm.Message)
}

// Engine builds and runs negotiation loops. It is safe for concurrent use;
// runs share only the provider registry.
type Engine struct {
	source   ConfigSource
	resolver providers.CredentialResolver
	logger   *slog.Logger

	mu       sync.Mutex
	registry *providers.Registry
	factory  providers.Factory
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFactory replaces how provider clients are constructed.
func WithFactory(f providers.Factory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

func New(source ConfigSource, resolver providers.CredentialResolver, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one negotiation over prompt. On abort the partial result is
// returned alongside the error.
func (e *Engine) Run(ctx context.Context, prompt string, opts RunOptions) (*swarm.Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, swarm.ErrEmptyPrompt
	}

	cfg := e.source()
	if cfg == nil {
		return nil, serrors.NewConfigurationErrorf("engine", "no configuration loaded")
	}

	sc, prompts := SessionConfig(cfg)
	if opts.RoundCap > 0 {
		sc.RoundCap = opts.RoundCap
	}

	logger := e.logger
	if opts.SessionID != "" {
		logger = logger.With(slog.String("session_id", opts.SessionID))
	}

	registry := e.providers(cfg)
	roster, err := swarm.BuildRoster(ctx, sc, prompts, registry.Get)
	if err != nil {
		return nil, err
	}

	dispatcher := swarm.NewDispatcher(swarm.WithDispatchLogger(logger))
	gen := tools.NewProfileGenerator(ProfileConfig(cfg), registry.Get, logger)
	if err := dispatcher.Register(swarm.ProfileTool(gen)); err != nil {
		return nil, serrors.NewConfigurationError("engine", err)
	}

	loopOpts := []swarm.LoopOption{swarm.WithLogger(e.logger)}
	if opts.SessionID != "" {
		loopOpts = append(loopOpts, swarm.WithSessionID(opts.SessionID))
	}
	if opts.OnMessage != nil {
		loopOpts = append(loopOpts, swarm.WithMessageObserver(opts.OnMessage))
	}

	loop, err := swarm.NewLoop(sc, roster, dispatcher, loopOpts...)
	if err != nil {
		return nil, err
	}
	return loop.Run(ctx, prompt)
}

// Reset drops cached provider clients so the next run rebuilds them from
// the current configuration and credentials.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registry == nil {
		return nil
	}
	err := e.registry.Close()
	e.registry = nil
	return err
}

func (e *Engine) Close() error {
	return e.Reset()
}

func (e *Engine) providers(cfg *config.Config) *providers.Registry {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registry == nil {
		defaults := providers.DefaultBaseConfig()
		if cfg.LLM.MaxTokens > 0 {
			defaults.MaxTokens = cfg.LLM.MaxTokens
		}
		defaults.Temperature = cfg.LLM.Temperature

		opts := []providers.RegistryOption{providers.WithDefaults(defaults)}
		if e.factory != nil {
			opts = append(opts, providers.WithFactory(e.factory))
		}
		e.registry = providers.NewRegistry(e.resolver, opts...)
	}
	return e.registry
}
