package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
provider:
  kind: openai
  api_key: sk-test
  model: gpt-4o-mini
  temperature: 0.2
  rate_limit:
    rpm: 60
    base_delay: 500ms

search:
  kind: exa
  api_key: exa-test
  max_results: 5

system_prompt: Be concise.

log:
  level: debug
  file: searchsmart.log

server:
  addr: ":9090"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider.Kind)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	require.NotNil(t, cfg.Provider.Temperature)
	assert.InDelta(t, 0.2, *cfg.Provider.Temperature, 1e-9)
	require.NotNil(t, cfg.Provider.TopP)
	assert.InDelta(t, DefaultTopP, *cfg.Provider.TopP, 1e-9)
	assert.Equal(t, 60, cfg.Provider.RateLimit.RPM)
	assert.Equal(t, "500ms", cfg.Provider.RateLimit.BaseDelay)

	assert.Equal(t, "exa", cfg.Search.Kind)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, "Be concise.", cfg.SystemPrompt)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "searchsmart.log", cfg.Log.File)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
provider:
  kind: anthropic
  model: claude-sonnet-4-20250514
search:
  kind: tavily
`))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, *cfg.Provider.Temperature, 1e-9)
	assert.InDelta(t, 1.0, *cfg.Provider.TopP, 1e-9)
	assert.Equal(t, DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.False(t, cfg.Provider.RateLimit.Enabled())
}

func TestLoadConfig_ExplicitZeroTemperature(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
provider:
  kind: openai
  model: gpt-4o
  temperature: 0
search:
  kind: exa
`))
	require.NoError(t, err)
	assert.Zero(t, *cfg.Provider.Temperature)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/no/such/file.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "provider: [unclosed"))
	assert.ErrorContains(t, err, "engine: parse config")
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SEARCHSMART_TEST_OPENAI_KEY", "sk-from-env")
	t.Setenv("SEARCHSMART_TEST_EXA_KEY", "exa-from-env")

	cfg, err := LoadConfig(writeConfig(t, `
provider:
  kind: openai
  api_key: ${SEARCHSMART_TEST_OPENAI_KEY}
  model: gpt-4o
search:
  kind: exa
  api_key: $SEARCHSMART_TEST_EXA_KEY
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
	assert.Equal(t, "exa-from-env", cfg.Search.APIKey)
}

func validConfig() Config {
	cfg := Config{
		Provider: ProviderConfig{Kind: "openai", Model: "gpt-4o"},
		Search:   SearchConfig{Kind: "exa"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	float := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing provider kind", func(c *Config) { c.Provider.Kind = "" }, "provider kind is required"},
		{"missing model", func(c *Config) { c.Provider.Model = "" }, "model is required"},
		{"temperature too high", func(c *Config) { c.Provider.Temperature = float(2.5) }, "temperature"},
		{"top_p negative", func(c *Config) { c.Provider.TopP = float(-0.1) }, "top_p"},
		{"negative max tokens", func(c *Config) { c.Provider.MaxTokens = -1 }, "max_tokens"},
		{"missing search kind", func(c *Config) { c.Search.Kind = "" }, "search kind is required"},
		{"zero results", func(c *Config) { c.Search.MaxResults = 0 }, "max_results 0"},
		{"too many results", func(c *Config) { c.Search.MaxResults = 11 }, "max_results 11"},
		{"upper bound results", func(c *Config) { c.Search.MaxResults = 10 }, ""},
		{"both prompts", func(c *Config) {
			c.SystemPrompt = "a"
			c.SystemPromptFile = "b"
		}, "mutually exclusive"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".searchsmart", "config.yaml")
	cfg := validConfig()
	cfg.Provider.APIKey = "${OPENAI_API_KEY}"
	cfg.Search.MaxResults = 4

	require.NoError(t, SaveConfig(path, cfg))

	t.Setenv("OPENAI_API_KEY", "sk-saved")
	got, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-saved", got.Provider.APIKey)
	assert.Equal(t, 4, got.Search.MaxResults)
	assert.Equal(t, cfg.Provider.Model, got.Provider.Model)
}
