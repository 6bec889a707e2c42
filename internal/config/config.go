// Package config loads server configuration from an optional config.yaml
// plus IMPETUS_-prefixed environment variables, the latter overriding the
// former. Nested keys use "__" in env names, e.g.
// IMPETUS_PROVIDERS__OPENAI__API_KEY maps to providers.openai.api_key.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig                `koanf:"server"`
	LLM       LLMConfig                   `koanf:"llm"`
	Providers map[string]ProviderSettings `koanf:"providers"`
	Cache     CacheConfig                 `koanf:"cache"`
	Storage   StorageConfig               `koanf:"storage"`
	Metrics   MetricsConfig               `koanf:"metrics"`
}

type ServerConfig struct {
	Port int `koanf:"port"`

	// RequestTimeoutSeconds bounds total request handling, including the
	// outbound backend call.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
}

type LLMConfig struct {
	// DefaultProvider is used when a request carries no provider override.
	DefaultProvider string `koanf:"default_provider"`

	// AllowDebug gates the deterministic no-network backend.
	AllowDebug bool `koanf:"allow_debug"`

	// CallTimeoutSeconds bounds each outbound backend call.
	CallTimeoutSeconds int `koanf:"call_timeout_seconds"`
}

// ProviderSettings is the server-side default configuration for one
// backend. A provider with an empty APIKey has no server-side default
// and is only reachable via BYOK overrides.
type ProviderSettings struct {
	APIKey      string   `koanf:"api_key"`
	Model       string   `koanf:"model"`
	Temperature *float64 `koanf:"temperature"`
}

type CacheConfig struct {
	TTLSeconds int `koanf:"ttl_seconds"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite
	DSN    string `koanf:"dsn"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// RequestTimeout returns the per-request deadline as a duration.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CallTimeout returns the backend call timeout as a duration.
func (c LLMConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// CacheTTL returns the idempotency window as a duration.
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (when present) and environment variables.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path, used by tests.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// Missing file is fine, env vars alone can configure the server.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("IMPETUS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "IMPETUS_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8000)
	}
	if !k.Exists("server.request_timeout_seconds") {
		k.Set("server.request_timeout_seconds", 30)
	}
	if !k.Exists("llm.default_provider") {
		k.Set("llm.default_provider", "openai")
	}
	if !k.Exists("llm.call_timeout_seconds") {
		k.Set("llm.call_timeout_seconds", 15)
	}
	if !k.Exists("cache.ttl_seconds") {
		k.Set("cache.ttl_seconds", 15)
	}
	if !k.Exists("storage.driver") {
		k.Set("storage.driver", "memory")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderSettings)
	}

	// Substitute ${VAR} references in provider API keys
	for name, settings := range cfg.Providers {
		settings.APIKey = substituteEnvVars(settings.APIKey)
		cfg.Providers[name] = settings
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
