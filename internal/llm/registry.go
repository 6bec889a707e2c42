package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/quillfire/impetus/internal/config"
	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/prompt"
)

// Override carries the per-request BYOK headers. Zero values mean "not
// supplied". Temperature is deliberately absent; overrides may only
// pick provider, model, and key.
type Override struct {
	Provider string
	Model    string
	APIKey   string
}

// Empty reports whether no override field is set.
func (o Override) Empty() bool {
	return o.Provider == "" && o.Model == "" && o.APIKey == ""
}

// resolvedConfig is the outcome of precedence resolution, before an
// instance is built.
type resolvedConfig struct {
	provider    string
	apiKey      string
	model       string
	temperature float64
	cacheable   bool
}

// Registry resolves provider instances per request. Server-side default
// instances are cached one per provider name; BYOK instances are built
// fresh every time so caller credentials are never retained. The debug
// provider holds no secret and is cacheable, but only resolvable when
// enabled in configuration.
type Registry struct {
	mu          sync.Mutex
	defaults    map[string]config.ProviderSettings
	instances   map[string]domain.Provider
	defaultName string
	allowDebug  bool
	callTimeout time.Duration
	prompts     *prompt.Store
}

// NewRegistry seeds the registry from configuration.
func NewRegistry(cfg *config.Config, prompts *prompt.Store) *Registry {
	r := &Registry{prompts: prompts}
	r.Reload(cfg)
	return r
}

// Reload re-reads configured defaults and drops all cached instances.
func (r *Registry) Reload(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaults = make(map[string]config.ProviderSettings, len(cfg.Providers))
	for name, settings := range cfg.Providers {
		r.defaults[strings.ToLower(strings.TrimSpace(name))] = settings
	}
	r.instances = make(map[string]domain.Provider)
	r.defaultName = normalize(cfg.LLM.DefaultProvider)
	if r.defaultName == "" {
		r.defaultName = ProviderOpenAI
	}
	r.allowDebug = cfg.LLM.AllowDebug
	r.callTimeout = cfg.LLM.CallTimeout()
	if r.callTimeout <= 0 {
		r.callTimeout = 15 * time.Second
	}
}

// DefaultProvider returns the configured default provider name.
func (r *Registry) DefaultProvider() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultName
}

// Resolve produces a ready-to-call provider for the request, or nil when
// allowBlank is set and no default configuration exists. Failures are
// *domain.ProviderError values from the configuration taxonomy.
func (r *Registry) Resolve(ctx context.Context, override Override, allowBlank bool) (domain.Provider, error) {
	resolved, err := r.resolveConfig(override, allowBlank)
	if err != nil || resolved == nil {
		return nil, err
	}

	if resolved.cacheable {
		r.mu.Lock()
		cached, ok := r.instances[resolved.provider]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	// Instances are stateless, so building outside the lock and letting a
	// concurrent loser be discarded is safe.
	instance, err := r.build(ctx, resolved)
	if err != nil {
		return nil, err
	}

	if resolved.cacheable {
		r.mu.Lock()
		if cached, ok := r.instances[resolved.provider]; ok {
			instance = cached
		} else {
			r.instances[resolved.provider] = instance
		}
		r.mu.Unlock()
	}
	return instance, nil
}

func (r *Registry) resolveConfig(override Override, allowBlank bool) (*resolvedConfig, error) {
	r.mu.Lock()
	defaultName := r.defaultName
	allowDebug := r.allowDebug
	r.mu.Unlock()

	name := normalize(override.Provider)
	if name == "" {
		name = defaultName
	}

	if !knownProvider(name, allowDebug) {
		return nil, domain.ErrUnsupportedProvider(name)
	}

	modelOverride := strings.TrimSpace(override.Model)
	apiKeyOverride := strings.TrimSpace(override.APIKey)

	if name == ProviderDebug {
		model := modelOverride
		if model == "" {
			model = r.defaultModel(ProviderDebug)
		}
		return &resolvedConfig{
			provider:    ProviderDebug,
			model:       model,
			temperature: FallbackTemperature(ProviderDebug),
			cacheable:   true,
		}, nil
	}

	if apiKeyOverride != "" {
		model := modelOverride
		if model == "" {
			model = r.defaultModel(name)
		}
		return &resolvedConfig{
			provider:    name,
			apiKey:      apiKeyOverride,
			model:       model,
			temperature: r.defaultTemperature(name),
			cacheable:   false,
		}, nil
	}

	r.mu.Lock()
	settings, configured := r.defaults[name]
	r.mu.Unlock()

	if configured && strings.TrimSpace(settings.APIKey) != "" {
		model := modelOverride
		if model == "" {
			model = r.defaultModel(name)
		}
		return &resolvedConfig{
			provider:    name,
			apiKey:      strings.TrimSpace(settings.APIKey),
			model:       model,
			temperature: r.defaultTemperature(name),
			cacheable:   true,
		}, nil
	}

	if allowBlank {
		return nil, nil
	}
	return nil, domain.ErrNotConfigured(name)
}

func (r *Registry) build(ctx context.Context, resolved *resolvedConfig) (domain.Provider, error) {
	switch resolved.provider {
	case ProviderOpenAI:
		backend := NewOpenAIBackend(resolved.apiKey, resolved.model, resolved.temperature, r.callTimeout)
		return NewProvider(backend, r.prompts), nil
	case ProviderAnthropic:
		backend := NewAnthropicBackend(resolved.apiKey, resolved.model, resolved.temperature, r.callTimeout)
		return NewProvider(backend, r.prompts), nil
	case ProviderGemini:
		backend, err := NewGeminiBackend(ctx, resolved.apiKey, resolved.model, resolved.temperature, r.callTimeout)
		if err != nil {
			return nil, err
		}
		return NewProvider(backend, r.prompts), nil
	case ProviderDebug:
		return NewDebugProvider(resolved.model), nil
	default:
		return nil, domain.ErrUnsupportedProvider(resolved.provider)
	}
}

// defaultModel resolves the model for a provider without an override:
// configured model first, hardcoded fallback second.
func (r *Registry) defaultModel(provider string) string {
	r.mu.Lock()
	settings, ok := r.defaults[provider]
	r.mu.Unlock()

	if ok && strings.TrimSpace(settings.Model) != "" {
		return strings.TrimSpace(settings.Model)
	}
	return FallbackModel(provider)
}

// defaultTemperature resolves the configured temperature or the
// hardcoded fallback.
func (r *Registry) defaultTemperature(provider string) float64 {
	r.mu.Lock()
	settings, ok := r.defaults[provider]
	r.mu.Unlock()

	if ok && settings.Temperature != nil {
		return *settings.Temperature
	}
	return FallbackTemperature(provider)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func knownProvider(name string, allowDebug bool) bool {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return true
	case ProviderDebug:
		return allowDebug
	default:
		return false
	}
}
