// Package config loads dealercheck settings from viper, the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/dealercheck/internal/common"
	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// EnvPrefix namespaces environment overrides, e.g. DEALERCHECK_LLM_MODEL.
const EnvPrefix = "DEALERCHECK"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	LLM     LLMConfig
	Dealer  DealerConfig
}

// LLMConfig selects and tunes the text-generation provider.
type LLMConfig struct {
	Provider        string
	Model           string
	FallbackModel   string
	BaseURL         string
	ClaudeCodePath  string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Temperature     float64
	MaxTokens       int
	MaxRetries      int
	RetryDelay      time.Duration
	Timeout         time.Duration
}

// DealerConfig tunes the analysis itself.
type DealerConfig struct {
	PolicyFile     string
	QueryTimeout   time.Duration
	CombinedPrompt bool
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.fallback_model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("dealer.query_timeout", 60*time.Second)
	v.SetDefault("dealer.combined_prompt", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes every key overridable through DEALERCHECK_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:        strings.ToLower(v.GetString("llm.provider")),
			Model:           v.GetString("llm.model"),
			FallbackModel:   v.GetString("llm.fallback_model"),
			BaseURL:         v.GetString("llm.base_url"),
			ClaudeCodePath:  ExpandPath(v.GetString("llm.claude_code_path")),
			OpenAIAPIKey:    v.GetString("llm.openai_api_key"),
			AnthropicAPIKey: v.GetString("llm.anthropic_api_key"),
			Temperature:     v.GetFloat64("llm.temperature"),
			MaxTokens:       v.GetInt("llm.max_tokens"),
			MaxRetries:      v.GetInt("llm.max_retries"),
			RetryDelay:      v.GetDuration("llm.retry_delay"),
			Timeout:         v.GetDuration("llm.timeout"),
		},
		Dealer: DealerConfig{
			PolicyFile:     ExpandPath(v.GetString("dealer.policy_file")),
			QueryTimeout:   v.GetDuration("dealer.query_timeout"),
			CombinedPrompt: v.GetBool("dealer.combined_prompt"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			CORSOrigins: splitList(v.GetStringSlice("server.cors_origins")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	// Fall back to the providers' conventional variables.
	if cfg.LLM.OpenAIAPIKey == "" {
		cfg.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.AnthropicAPIKey == "" {
		cfg.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "claudecode":
	default:
		return fmt.Errorf("%w: unsupported llm.provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxTokens < 0 {
		return fmt.Errorf("%w: llm.max_retries and llm.max_tokens must be non-negative", common.ErrInvalidConfig)
	}
	if c.LLM.Timeout < 0 || c.Dealer.QueryTimeout < 0 || c.LLM.RetryDelay < 0 {
		return fmt.Errorf("%w: durations must be non-negative", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// ClientConfig returns the provider settings, failing when the selected
// provider has no credentials.
func (c LLMConfig) ClientConfig() (llm.Config, error) {
	cfg := llm.Config{
		Provider:       c.Provider,
		Model:          c.Model,
		FallbackModel:  c.FallbackModel,
		BaseURL:        c.BaseURL,
		ClaudeCodePath: c.ClaudeCodePath,
		MaxRetries:     c.MaxRetries,
		RetryDelay:     c.RetryDelay,
		Timeout:        c.Timeout,
		Temperature:    c.Temperature,
		MaxTokens:      c.MaxTokens,
	}

	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return llm.Config{}, fmt.Errorf("%w: OpenAI API key not found: set OPENAI_API_KEY or llm.openai_api_key", common.ErrMissingConfig)
		}
		cfg.APIKey = c.OpenAIAPIKey
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return llm.Config{}, fmt.Errorf("%w: Anthropic API key not found: set ANTHROPIC_API_KEY or llm.anthropic_api_key", common.ErrMissingConfig)
		}
		cfg.APIKey = c.AnthropicAPIKey
		// The OpenAI model defaults make no sense for Anthropic.
		if strings.HasPrefix(cfg.Model, "gpt-") {
			cfg.Model = ""
		}
		if strings.HasPrefix(cfg.FallbackModel, "gpt-") {
			cfg.FallbackModel = ""
		}
	case "claudecode":
		cfg.Model = ""
		cfg.FallbackModel = ""
	}
	return cfg, nil
}

// Policy returns the risk policy, loading PolicyFile when set.
func (c DealerConfig) Policy() (risk.Policy, error) {
	if c.PolicyFile == "" {
		return risk.DefaultPolicy(), nil
	}
	return risk.LoadPolicy(c.PolicyFile)
}

// ExpandPath expands a leading ~ and $VAR references in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
