package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/research"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/germanamz/searchsmart/pkg/websearch"
)

// Engine is the composition root that assembles the completer, the search
// provider and the sessions from configuration.
type Engine struct {
	cfg          Config
	events       *EventBus
	log          *slog.Logger
	completer    modeladapter.Completer
	searcher     websearch.Searcher
	systemPrompt string

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates an Engine from the given configuration. It validates the
// config, builds the provider and search adapters and reads the system
// prompt file if one is configured. A nil logger discards all output.
func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	completer, err := buildCompleter(cfg.Provider)
	if err != nil {
		return nil, err
	}

	searcher, err := buildSearcher(cfg.Search)
	if err != nil {
		return nil, err
	}

	prompt := cfg.SystemPrompt
	if cfg.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.SystemPromptFile) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("engine: system prompt: %w", err)
		}
		prompt = string(data)
	}

	return &Engine{
		cfg:          cfg,
		events:       NewEventBus(),
		log:          log,
		completer:    completer,
		searcher:     searcher,
		systemPrompt: prompt,
		sessions:     make(map[string]*Session),
	}, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Usage returns the completer's token usage tracker, or nil when the
// completer does not report usage.
func (e *Engine) Usage() *usage.Tracker {
	if r, ok := e.completer.(modeladapter.UsageReporter); ok {
		return r.UsageTracker()
	}
	return nil
}

func (e *Engine) agentOptions(maxResults int, observer research.Observer, log *slog.Logger) research.Options {
	return research.Options{
		SystemPrompt: e.systemPrompt,
		MaxResults:   maxResults,
		MaxPageChars: e.cfg.Search.MaxPageChars,
		Logger:       log,
		Observer:     observer,
	}
}

// NewSession creates a conversation with its own history and seen-page set.
func (e *Engine) NewSession(opts SessionOptions) (*Session, error) {
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = e.cfg.Search.MaxResults
	}
	if maxResults < 1 || maxResults > MaxResultsLimit {
		return nil, fmt.Errorf("engine: max results %d out of range [1, %d]", maxResults, MaxResultsLimit)
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		events:  e.events,
		log:     e.log,
		created: time.Now(),
	}
	s.agent = research.New(e.completer, e.searcher, e.agentOptions(maxResults, s.observe, e.log.With("session", id)))
	s.history = s.agent.Chat().Messages()

	e.mu.Lock()
	e.sessions[id] = s
	e.mu.Unlock()

	e.log.Info("session created", "session", id, "max_results", maxResults)
	s.publish(EventSessionStart, nil)

	return s, nil
}

// Session returns an existing session by ID.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	return s, ok
}

// Sessions returns the number of open sessions.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.sessions)
}

// CloseSession discards a session together with its history and seen pages.
func (e *Engine) CloseSession(id string) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("engine: session %s: %w", id, ErrSessionNotFound)
	}

	e.log.Info("session closed", "session", id)
	s.publish(EventSessionEnd, nil)

	return nil
}

type searchInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

var searchToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "The web search query."},
		"max_results": {"type": "integer", "minimum": 1, "maximum": 10, "description": "Pages to return."}
	},
	"required": ["query"]
}`)

// SearchToolBox returns a toolbox with an executable search tool backed by
// the search-and-summarize service. Pages returned by one call are skipped
// by later calls on the same toolbox.
func (e *Engine) SearchToolBox() *toolbox.ToolBox {
	svc := research.NewService(
		e.searcher,
		research.NewLLMSummarizer(e.completer, e.cfg.Search.MaxPageChars),
		research.ServiceOptions{Logger: e.log.With("frontend", "mcp")},
	)
	var mu sync.Mutex

	return toolbox.New(toolbox.Tool{
		Name:        research.SearchToolName,
		Description: research.SearchTool().Description,
		InputSchema: searchToolSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in searchInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("%w: %w", research.ErrMalformedToolArguments, err)
			}
			if in.Query == "" {
				return "", fmt.Errorf("%w: query is required", research.ErrMalformedToolArguments)
			}
			if in.MaxResults < 1 || in.MaxResults > MaxResultsLimit {
				in.MaxResults = e.cfg.Search.MaxResults
			}

			mu.Lock()
			results, _, err := svc.Search(ctx, in.Query, in.MaxResults)
			mu.Unlock()
			if err != nil {
				return "", err
			}

			out, err := json.Marshal(results)
			if err != nil {
				return "", fmt.Errorf("engine: encode results: %w", err)
			}
			return string(out), nil
		},
	})
}
