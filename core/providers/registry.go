package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CredentialResolver looks up an API key by credential name.
type CredentialResolver interface {
	Resolve(name string) (string, error)
}

// Factory constructs a provider for a binding once its key is resolved.
type Factory func(ctx context.Context, binding Binding, apiKey string, defaults BaseConfig) (Provider, error)

// Registry manages provider instances, one per distinct binding, and
// resolves credentials when a binding is first requested.
type Registry struct {
	mu sync.RWMutex

	providers map[string]Provider
	resolver  CredentialResolver
	factory   Factory
	defaults  BaseConfig
}

type RegistryOption func(*Registry)

// WithFactory replaces the provider constructor.
func WithFactory(f Factory) RegistryOption {
	return func(r *Registry) {
		r.factory = f
	}
}

// WithDefaults sets the token and temperature defaults new providers get.
func WithDefaults(base BaseConfig) RegistryOption {
	return func(r *Registry) {
		r.defaults = base
	}
}

// NewRegistry creates a new provider registry
func NewRegistry(resolver CredentialResolver, opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		resolver:  resolver,
		factory:   NewProvider,
		defaults:  DefaultBaseConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewProvider is the default Factory.
func NewProvider(ctx context.Context, binding Binding, apiKey string, defaults BaseConfig) (Provider, error) {
	base := defaults
	base.APIKey = apiKey
	base.Model = binding.Model
	base.BaseURL = binding.BaseURL

	switch binding.Provider {
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(OpenAIConfig{BaseConfig: base})
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(AnthropicConfig{BaseConfig: base})
	case ProviderTypeGoogle:
		return NewGoogleProvider(ctx, GoogleConfig{BaseConfig: base})
	default:
		return nil, fmt.Errorf("unknown provider type: %q", binding.Provider)
	}
}

// Register adds a provider for a binding
func (r *Registry) Register(binding Binding, provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := provider.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid provider config for %s: %w", binding.Provider, err)
	}

	r.providers[binding.key()] = provider
	return nil
}

// Get returns the provider for binding, constructing it on first use.
func (r *Registry) Get(ctx context.Context, binding Binding) (Provider, error) {
	r.mu.RLock()
	provider, ok := r.providers[binding.key()]
	r.mu.RUnlock()
	if ok {
		return provider, nil
	}

	if !binding.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider type: %q", binding.Provider)
	}
	if binding.Model == "" {
		return nil, fmt.Errorf("%s binding has no model", binding.Provider)
	}
	if r.resolver == nil {
		return nil, fmt.Errorf("no credential resolver configured")
	}

	apiKey, err := r.resolver.Resolve(binding.Credential)
	if err != nil {
		return nil, err
	}

	provider, err = r.factory(ctx, binding, apiKey, r.defaults)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", binding.Provider, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.providers[binding.key()]; ok {
		_ = provider.Close()
		return existing, nil
	}
	r.providers[binding.key()] = provider
	return provider, nil
}

// Has checks if a binding already has a provider
func (r *Registry) Has(binding Binding) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[binding.key()]
	return ok
}

// Available returns the keys of all constructed providers, sorted
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close closes all registered providers
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	r.providers = make(map[string]Provider)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}
	return nil
}
