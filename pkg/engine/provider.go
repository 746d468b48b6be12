package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/providers/anthropic"
	"github.com/germanamz/searchsmart/pkg/providers/openai"
	"github.com/germanamz/searchsmart/pkg/websearch"
)

// ProviderFactory creates a Completer from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig) (modeladapter.Completer, error)

// SearcherFactory creates a Searcher from a SearchConfig.
type SearcherFactory func(cfg SearchConfig) (websearch.Searcher, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	searchers   = map[string]SearcherFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories["anthropic"] = newAnthropic
		factories["openai"] = newOpenAI
		searchers["exa"] = newExa
		searchers["tavily"] = newTavily
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// RegisterSearcher registers a custom search provider factory under the given
// kind.
func RegisterSearcher(kind string, factory SearcherFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	searchers[kind] = factory
}

func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func getSearcherFactory(kind string) (SearcherFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := searchers[kind]
	return f, ok
}

// sampling copies the sampling settings onto an adapter.
func sampling(a *modeladapter.ModelAdapter, cfg ProviderConfig) {
	if cfg.Temperature != nil {
		t := *cfg.Temperature
		a.Temperature = &t
	}
	if cfg.TopP != nil {
		p := *cfg.TopP
		a.TopP = &p
	}
	if cfg.MaxTokens > 0 {
		a.MaxTokens = cfg.MaxTokens
	}
}

func newAnthropic(cfg ProviderConfig) (modeladapter.Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropic.DefaultBaseURL
	}

	a := anthropic.New(baseURL, cfg.APIKey, cfg.Model)
	sampling(&a.ModelAdapter, cfg)

	return a, nil
}

func newOpenAI(cfg ProviderConfig) (modeladapter.Completer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openai.DefaultBaseURL
	}

	a := openai.New(baseURL, cfg.APIKey, cfg.Model)
	sampling(&a.ModelAdapter, cfg)

	return a, nil
}

func newExa(cfg SearchConfig) (websearch.Searcher, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = websearch.DefaultExaBaseURL
	}

	return websearch.NewExa(baseURL, cfg.APIKey), nil
}

func newTavily(cfg SearchConfig) (websearch.Searcher, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = websearch.DefaultTavilyBaseURL
	}

	return websearch.NewTavily(baseURL, cfg.APIKey, cfg.Depth), nil
}

// buildCompleter creates a Completer from a ProviderConfig using the registered
// factory for its Kind. If rate limiting is configured, the completer is wrapped
// with a RateLimitedCompleter.
func buildCompleter(cfg ProviderConfig) (modeladapter.Completer, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	rl := cfg.RateLimit
	if rl.Enabled() {
		var baseDelay time.Duration
		if rl.BaseDelay != "" {
			var parseErr error
			baseDelay, parseErr = time.ParseDuration(rl.BaseDelay)
			if parseErr != nil {
				return nil, fmt.Errorf("engine: provider %q: invalid base_delay %q: %w", cfg.Kind, rl.BaseDelay, parseErr)
			}
		}

		c = modeladapter.NewRateLimitedCompleter(c, modeladapter.RateLimitOpts{
			RPM:        rl.RPM,
			MaxRetries: rl.MaxRetries,
			BaseDelay:  baseDelay,
		})
	}

	return c, nil
}

// buildSearcher creates a Searcher from a SearchConfig using the registered
// factory for its Kind.
func buildSearcher(cfg SearchConfig) (websearch.Searcher, error) {
	factory, ok := getSearcherFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown search kind %q", cfg.Kind)
	}

	return factory(cfg)
}
