package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxResults is the number of pages requested per search.
	DefaultMaxResults = 3
	// MaxResultsLimit is the largest accepted results-per-search setting.
	MaxResultsLimit = 10
	// DefaultTemperature and DefaultTopP apply when the config omits them.
	DefaultTemperature = 1.0
	DefaultTopP        = 1.0
	// DefaultAddr is the listen address of the HTTP API.
	DefaultAddr = "127.0.0.1:8080"
)

// Config is the top-level engine configuration.
type Config struct {
	Dir              string         `yaml:"-"` // Set by CLI, not from YAML.
	Provider         ProviderConfig `yaml:"provider"`
	Search           SearchConfig   `yaml:"search"`
	SystemPrompt     string         `yaml:"system_prompt"`
	SystemPromptFile string         `yaml:"system_prompt_file"`
	Log              LogConfig      `yaml:"log"`
	Server           ServerConfig   `yaml:"server"`
}

// RateLimitConfig controls provider rate limiting. All zero disables it.
type RateLimitConfig struct {
	RPM        int    `yaml:"rpm"`         // Requests per minute (0 = no limit).
	MaxRetries int    `yaml:"max_retries"` // Max retries on 429 (default 3).
	BaseDelay  string `yaml:"base_delay"`  // Initial backoff delay as a duration string (e.g. "1s", "500ms").
}

// Enabled reports whether any rate limit setting is present.
func (r RateLimitConfig) Enabled() bool {
	return r.RPM > 0 || r.MaxRetries > 0 || r.BaseDelay != ""
}

// ProviderConfig describes the LLM provider.
type ProviderConfig struct {
	Kind        string          `yaml:"kind"`
	BaseURL     string          `yaml:"base_url"`
	APIKey      string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model       string          `yaml:"model"`
	Temperature *float64        `yaml:"temperature"`
	TopP        *float64        `yaml:"top_p"`
	MaxTokens   int             `yaml:"max_tokens"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// SearchConfig describes the web search provider.
type SearchConfig struct {
	Kind         string `yaml:"kind"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	MaxResults   int    `yaml:"max_results"`
	Depth        string `yaml:"depth"` // Tavily search depth.
	MaxPageChars int    `yaml:"max_page_chars"`
}

// LogConfig selects the log level and destination.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error.
	File  string `yaml:"file"`  // Empty lets the frontend choose.
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoadConfig reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so API keys can live in the environment (e.g. loaded from a
// .env file) rather than in the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("engine: encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("engine: save config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("engine: save config: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Provider.Temperature == nil {
		t := DefaultTemperature
		c.Provider.Temperature = &t
	}
	if c.Provider.TopP == nil {
		p := DefaultTopP
		c.Provider.TopP = &p
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = DefaultMaxResults
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Provider.Kind == "" {
		return fmt.Errorf("engine: config: provider kind is required")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("engine: config: provider %q: model is required", c.Provider.Kind)
	}
	if t := c.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("engine: config: provider temperature %v out of range [0, 2]", *t)
	}
	if p := c.Provider.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("engine: config: provider top_p %v out of range [0, 1]", *p)
	}
	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("engine: config: provider max_tokens must not be negative")
	}

	if c.Search.Kind == "" {
		return fmt.Errorf("engine: config: search kind is required")
	}
	if n := c.Search.MaxResults; n < 1 || n > MaxResultsLimit {
		return fmt.Errorf("engine: config: search max_results %d out of range [1, %d]", n, MaxResultsLimit)
	}

	if c.SystemPrompt != "" && c.SystemPromptFile != "" {
		return fmt.Errorf("engine: config: system_prompt and system_prompt_file are mutually exclusive")
	}

	if c.Log.Level != "" && !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("engine: config: unknown log level %q", c.Log.Level)
	}

	return nil
}
