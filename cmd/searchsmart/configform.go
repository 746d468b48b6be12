package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/searchsmart/pkg/engine"
)

// formValues holds the settings edited by the config form. Numbers are kept
// as strings because huh inputs edit text.
type formValues struct {
	ProviderKind string
	Model        string
	ProviderKey  string //nolint:gosec // env var reference, not a secret
	Temperature  string
	TopP         string
	SearchKind   string
	SearchKey    string //nolint:gosec // env var reference, not a secret
	MaxResults   string
}

type providerDefault struct {
	APIKey string //nolint:gosec // env var reference template, not a secret
	Model  string
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var providerDefaults = map[string]providerDefault{
	"openai":    {APIKey: "${OPENAI_API_KEY}", Model: "gpt-4o-mini"},
	"anthropic": {APIKey: "${ANTHROPIC_API_KEY}", Model: "claude-sonnet-4-20250514"},
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var searchKeyDefaults = map[string]string{
	"exa":    "${EXA_API_KEY}",
	"tavily": "${TAVILY_API_KEY}",
}

func defaultFormValues() formValues {
	return formValues{
		ProviderKind: "openai",
		Model:        providerDefaults["openai"].Model,
		ProviderKey:  providerDefaults["openai"].APIKey,
		Temperature:  strconv.FormatFloat(engine.DefaultTemperature, 'g', -1, 64),
		TopP:         strconv.FormatFloat(engine.DefaultTopP, 'g', -1, 64),
		SearchKind:   "exa",
		SearchKey:    searchKeyDefaults["exa"],
		MaxResults:   strconv.Itoa(engine.DefaultMaxResults),
	}
}

// formValuesFrom prefills the form from an existing config file read without
// environment expansion, so ${VAR} references survive the edit.
func formValuesFrom(cfg engine.Config) formValues {
	v := defaultFormValues()
	if cfg.Provider.Kind != "" {
		v.ProviderKind = cfg.Provider.Kind
	}
	if cfg.Provider.Model != "" {
		v.Model = cfg.Provider.Model
	}
	if cfg.Provider.APIKey != "" {
		v.ProviderKey = cfg.Provider.APIKey
	}
	if t := cfg.Provider.Temperature; t != nil {
		v.Temperature = strconv.FormatFloat(*t, 'g', -1, 64)
	}
	if p := cfg.Provider.TopP; p != nil {
		v.TopP = strconv.FormatFloat(*p, 'g', -1, 64)
	}
	if cfg.Search.Kind != "" {
		v.SearchKind = cfg.Search.Kind
	}
	if cfg.Search.APIKey != "" {
		v.SearchKey = cfg.Search.APIKey
	}
	if cfg.Search.MaxResults > 0 {
		v.MaxResults = strconv.Itoa(cfg.Search.MaxResults)
	}
	return v
}

// withKindDefaults resets the model and key fields to the defaults of the
// chosen kinds when they differ from the kinds in base.
func (v formValues) withKindDefaults(base engine.Config) formValues {
	if d, ok := providerDefaults[v.ProviderKind]; ok && v.ProviderKind != base.Provider.Kind {
		v.Model = d.Model
		v.ProviderKey = d.APIKey
	}
	if key, ok := searchKeyDefaults[v.SearchKind]; ok && v.SearchKind != base.Search.Kind {
		v.SearchKey = key
	}
	return v
}

// apply writes the form values onto base, keeping settings the form does not
// edit.
func (v formValues) apply(base engine.Config) (engine.Config, error) {
	temp, err := strconv.ParseFloat(v.Temperature, 64)
	if err != nil {
		return base, fmt.Errorf("temperature: %w", err)
	}
	topP, err := strconv.ParseFloat(v.TopP, 64)
	if err != nil {
		return base, fmt.Errorf("top_p: %w", err)
	}
	results, err := strconv.Atoi(v.MaxResults)
	if err != nil {
		return base, fmt.Errorf("results per search: %w", err)
	}

	cfg := base
	cfg.Provider.Kind = v.ProviderKind
	cfg.Provider.Model = strings.TrimSpace(v.Model)
	cfg.Provider.APIKey = strings.TrimSpace(v.ProviderKey)
	cfg.Provider.Temperature = &temp
	cfg.Provider.TopP = &topP
	cfg.Search.Kind = v.SearchKind
	cfg.Search.APIKey = strings.TrimSpace(v.SearchKey)
	cfg.Search.MaxResults = results

	return cfg, cfg.Validate()
}

func validateResults(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a number")
	}
	if n < 1 || n > engine.MaxResultsLimit {
		return fmt.Errorf("must be between 1 and %d", engine.MaxResultsLimit)
	}
	return nil
}

func validateRange(lo, hi float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.New("must be a number")
		}
		if f < lo || f > hi {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	}
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

// loadRawConfig reads path without expanding environment variables. A
// missing file yields an empty config.
func loadRawConfig(path string) (engine.Config, error) {
	var cfg engine.Config
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func runConfigForm(opts cliOptions) error {
	path := resolveConfigPath(opts.configPath, opts.dir)
	if opts.configPath == "" && path == "searchsmart.yaml" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = filepath.Join(opts.dir, "config.yaml")
		}
	}

	base, err := loadRawConfig(path)
	if err != nil {
		return err
	}
	v := formValuesFrom(base)

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model provider").
				Options(
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("Anthropic", "anthropic"),
				).
				Value(&v.ProviderKind),
			huh.NewSelect[string]().
				Title("Search provider").
				Options(
					huh.NewOption("Exa", "exa"),
					huh.NewOption("Tavily", "tavily"),
				).
				Value(&v.SearchKind),
		),
	).Run(); err != nil {
		return err
	}

	v = v.withKindDefaults(base)

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Model").Value(&v.Model).Validate(validateRequired),
			huh.NewInput().Title("API key (env var reference)").Value(&v.ProviderKey),
			huh.NewInput().Title("Temperature (0-2)").Value(&v.Temperature).Validate(validateRange(0, 2)),
			huh.NewInput().Title("Top P (0-1)").Value(&v.TopP).Validate(validateRange(0, 1)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Search API key (env var reference)").
				Value(&v.SearchKey),
			huh.NewInput().
				Title(fmt.Sprintf("Results per search (1-%d)", engine.MaxResultsLimit)).
				Value(&v.MaxResults).
				Validate(validateResults),
		),
	).Run(); err != nil {
		return err
	}

	cfg, err := v.apply(base)
	if err != nil {
		return err
	}

	if err := engine.SaveConfig(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Saved %s\n", path)
	return nil
}
