// Package config loads the trainer's configuration from an optional file,
// PROMPT_TRAINER_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/giantswarm/prompt-trainer/internal/embedding"
	"github.com/giantswarm/prompt-trainer/internal/llm"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PROMPT_TRAINER"

// Embedding backends.
const (
	EmbeddingHashing = "hashing"
	EmbeddingOpenAI  = "openai"
	EmbeddingNone    = "none"
)

// Config is the complete runtime configuration.
type Config struct {
	Database      DatabaseConfig  `mapstructure:"database"`
	Auth          AuthConfig      `mapstructure:"auth"`
	HTTP          HTTPConfig      `mapstructure:"http"`
	Providers     ProvidersConfig `mapstructure:"providers"`
	Embedding     EmbeddingConfig `mapstructure:"embedding"`
	ChallengesDir string          `mapstructure:"challenges_dir"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type ProvidersConfig struct {
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	ClaudeModel     string        `mapstructure:"claude_model"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float64       `mapstructure:"temperature"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MockFallback    bool          `mapstructure:"mock_fallback"`
}

type EmbeddingConfig struct {
	Backend    string `mapstructure:"backend"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size"`
}

var defaults = map[string]any{
	"database.path":               "prompt_trainer.db",
	"auth.jwt_secret":             "",
	"auth.token_ttl":              "168h",
	"http.addr":                   ":8000",
	"http.cors_origins":           []string{"*"},
	"providers.openai_api_key":    "",
	"providers.openai_base_url":   "https://api.openai.com/v1",
	"providers.openai_model":      provider.DefaultOpenAIModel,
	"providers.anthropic_api_key": "",
	"providers.claude_model":      provider.DefaultClaudeModel,
	"providers.gemini_api_key":    "",
	"providers.gemini_model":      provider.DefaultGeminiModel,
	"providers.max_tokens":        1024,
	"providers.temperature":       0.0,
	"providers.request_timeout":   "60s",
	"providers.mock_fallback":     true,
	"embedding.backend":           EmbeddingHashing,
	"embedding.model":             llm.DefaultEmbeddingModel,
	"embedding.base_url":          "https://api.openai.com/v1",
	"embedding.api_key":           "",
	"embedding.dimensions":        embedding.DefaultDimensions,
	"embedding.cache_size":        1024,
	"challenges_dir":              "",
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The providers' conventional variables work without the prefix.
	_ = v.BindEnv("providers.openai_api_key", EnvPrefix+"_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("providers.anthropic_api_key", EnvPrefix+"_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("providers.gemini_api_key", EnvPrefix+"_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	return v
}

// Load reads configFile (if set) into v and returns the decoded configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be corrected by defaults.
func (c *Config) Validate() error {
	switch c.Embedding.Backend {
	case EmbeddingHashing, EmbeddingOpenAI, EmbeddingNone:
	default:
		return fmt.Errorf("unknown embedding backend %q (want %s, %s or %s)",
			c.Embedding.Backend, EmbeddingHashing, EmbeddingOpenAI, EmbeddingNone)
	}
	if c.Providers.Temperature < 0 || c.Providers.Temperature > 2 {
		return fmt.Errorf("providers.temperature must be between 0 and 2")
	}
	if c.Providers.RequestTimeout < 0 {
		return fmt.Errorf("providers.request_timeout must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	return nil
}

// Credentials returns the hosted provider settings.
func (p ProvidersConfig) Credentials() provider.Credentials {
	return provider.Credentials{
		OpenAIAPIKey:    p.OpenAIAPIKey,
		OpenAIBaseURL:   p.OpenAIBaseURL,
		OpenAIModel:     p.OpenAIModel,
		AnthropicAPIKey: p.AnthropicAPIKey,
		ClaudeModel:     p.ClaudeModel,
		GeminiAPIKey:    p.GeminiAPIKey,
		GeminiModel:     p.GeminiModel,
		MaxTokens:       p.MaxTokens,
		Temperature:     p.Temperature,
	}
}

// ManagerOptions returns the provider manager options.
func (p ProvidersConfig) ManagerOptions() []provider.ManagerOption {
	return []provider.ManagerOption{
		provider.WithMockFallback(p.MockFallback),
		provider.WithRequestTimeout(p.RequestTimeout),
	}
}

// Embedder builds the configured embedding provider. The "none" backend
// returns nil, which makes every semantic score use the fallback value.
func (e EmbeddingConfig) Embedder() scorer.Embedder {
	var base scorer.Embedder
	switch e.Backend {
	case EmbeddingOpenAI:
		base = llm.NewOpenAIClient(
			llm.WithBaseURL(e.BaseURL),
			llm.WithAPIKey(e.APIKey),
			llm.WithEmbeddingModel(e.Model),
		)
	case EmbeddingNone:
		return nil
	default:
		base = embedding.NewHashing(e.Dimensions)
	}
	if e.CacheSize > 0 {
		return embedding.NewCache(base, e.CacheSize)
	}
	return base
}
