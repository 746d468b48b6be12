package research

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/germanamz/searchsmart/pkg/websearch"
)

// DefaultSystemPrompt tells the model when to use the search tool.
const DefaultSystemPrompt = `You are a research assistant with access to a web search tool named "search".
Call it when the question needs current events, recent data, or facts you are not sure about.
Answer directly, without searching, when the question is general knowledge or about the conversation itself.
When you use search results, ground your answer in them and say when they do not cover the question.`

// DefaultMaxResults is the number of pages requested per search.
const DefaultMaxResults = 3

// ErrInvalidMaxResults is returned by SetMaxResults for a non-positive count.
var ErrInvalidMaxResults = errors.New("research: max results must be positive")

// Options configures an Agent.
type Options struct {
	SystemPrompt string // Empty selects DefaultSystemPrompt.
	MaxResults   int    // Pages per search; <= 0 selects DefaultMaxResults.
	MaxPageChars int    // Page text bound for the default summarizer.
	// Summarizer overrides the default, which summarizes with the agent's
	// own completer.
	Summarizer Summarizer
	Logger     *slog.Logger
	Observer   Observer
}

// Agent answers user turns over one conversation. It owns the conversation
// and the set of pages already summarized in it. An Agent is not safe for
// concurrent use.
type Agent struct {
	client     *Client
	service    *Service
	chat       *chat.Chat
	maxResults int
	state      State
	log        *slog.Logger
	observer   Observer
}

// New creates an Agent whose conversation starts with the system prompt.
func New(completer modeladapter.Completer, searcher websearch.Searcher, opts Options) *Agent {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Summarizer == nil {
		opts.Summarizer = NewLLMSummarizer(completer, opts.MaxPageChars)
	}

	a := &Agent{
		client:     NewClient(completer),
		chat:       chat.New(message.NewText("system", role.System, opts.SystemPrompt)),
		maxResults: opts.MaxResults,
		state:      StateIdle,
		log:        opts.Logger,
		observer:   opts.Observer,
	}
	a.service = NewService(searcher, opts.Summarizer, ServiceOptions{
		Logger:   opts.Logger,
		Observer: a.observe,
	})

	return a
}

// Chat returns the agent's conversation.
func (a *Agent) Chat() *chat.Chat { return a.chat }

// State returns the current turn state.
func (a *Agent) State() State { return a.state }

// MaxResults returns the number of pages requested per search.
func (a *Agent) MaxResults() int { return a.maxResults }

// SetMaxResults changes the number of pages requested per search.
func (a *Agent) SetMaxResults(n int) error {
	if n <= 0 {
		return ErrInvalidMaxResults
	}
	a.maxResults = n
	return nil
}

// Seen reports whether url was already summarized in this conversation.
func (a *Agent) Seen(url string) bool { return a.service.Seen(url) }

// Send runs one user turn: the user message is appended, the model may
// request searches, and the final reply is appended and returned with the
// sources used for it. A plain first reply is returned with no sources.
//
// On error the conversation keeps the user message and whatever was appended
// before the failure; a failed search round appends nothing.
func (a *Agent) Send(ctx context.Context, text string) (Answer, error) {
	start := time.Now()

	if err := a.chat.Append(message.NewText("user", role.User, text)); err != nil {
		return Answer{}, err
	}

	a.observe(Event{Kind: EventStateChanged, State: StateAwaitingFirstResponse})
	resp, err := a.client.Complete(ctx, a.chat, []toolbox.Tool{SearchTool()})
	if err != nil {
		return a.fail(ctx, err)
	}

	var answer Answer
	if final, ok := resp.(FinalAnswer); ok {
		answer = Answer{Text: final.Text}
	} else {
		d := NewDispatcher(a.client, a.service, a.maxResults, a.log, a.observe)
		answer, err = d.Dispatch(ctx, resp, a.chat)
		if err != nil {
			return a.fail(ctx, err)
		}
	}

	// An empty final answer leaves the history ending on the user or tool
	// messages; the chat does not hold empty messages.
	if strings.TrimSpace(answer.Text) != "" {
		if err := a.chat.Append(message.NewText("assistant", role.Assistant, answer.Text)); err != nil {
			return a.fail(ctx, err)
		}
	}

	a.observe(Event{Kind: EventStateChanged, State: StateDone})
	a.log.InfoContext(ctx, "turn finished",
		"sources", len(answer.Sources),
		"duration", time.Since(start),
	)

	return answer, nil
}

func (a *Agent) fail(ctx context.Context, err error) (Answer, error) {
	a.log.ErrorContext(ctx, "turn failed", "state", a.state, "error", err)
	a.observe(Event{Kind: EventStateChanged, State: StateIdle})
	return Answer{}, err
}

func (a *Agent) observe(e Event) {
	if e.Kind == EventStateChanged {
		a.state = e.State
	}
	a.observer.emit(e)
}
