package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
)

// Dispatcher executes the tool calls of a first completion and obtains the
// final answer.
type Dispatcher struct {
	client     *Client
	service    *Service
	maxResults int
	log        *slog.Logger
	observer   Observer
}

// NewDispatcher creates a Dispatcher that asks the service for up to
// maxResults pages per search.
func NewDispatcher(client *Client, service *Service, maxResults int, log *slog.Logger, observer Observer) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		client:     client,
		service:    service,
		maxResults: maxResults,
		log:        log,
		observer:   observer,
	}
}

// Dispatch turns a first-completion response into an answer.
//
// A FinalAnswer is returned as is, with no sources and no search. For
// ToolCallsRequested every call is parsed before anything runs, the searches
// run one at a time in the model's order, and only once all of them succeeded
// are the assistant reply and one tool message per call appended to c and
// the summarized pages marked as seen. A
// single final completion without tools follows; tool calls in that reply
// are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, resp Response, c *chat.Chat) (Answer, error) {
	requested, ok := resp.(ToolCallsRequested)
	if !ok {
		final, _ := resp.(FinalAnswer)
		return Answer{Text: final.Text}, nil
	}

	requests := make([]ToolCallRequest, 0, len(requested.Calls))
	for _, tc := range requested.Calls {
		req, err := ParseToolCall(tc)
		if err != nil {
			return Answer{}, err
		}
		requests = append(requests, req)
	}

	toolMsgs := make([]message.Message, 0, len(requests))
	var sources []Source
	r := d.service.newRound()
	summarizing := false
	r.found = func() {
		if !summarizing {
			summarizing = true
			d.setState(StateSummarizing)
		}
	}

	d.setState(StateSearching)
	for _, req := range requests {
		args := req.Args.(SearchArgs)

		d.observer.emit(Event{Kind: EventSearchStart, Query: args.Query})

		results, srcs, err := r.search(ctx, args.Query, d.maxResults)
		if err != nil {
			return Answer{}, err
		}

		d.observer.emit(Event{Kind: EventSearchEnd, Query: args.Query, Count: len(results)})

		payload, err := json.Marshal(results)
		if err != nil {
			return Answer{}, fmt.Errorf("research: encode results: %w", err)
		}

		toolMsgs = append(toolMsgs, message.New("tool", role.Tool, content.ToolResult{
			ToolCallID: req.ID,
			Content:    string(payload),
		}))
		sources = append(sources, srcs...)
	}

	if err := c.Append(append([]message.Message{requested.Message}, toolMsgs...)...); err != nil {
		return Answer{}, err
	}
	r.commit()

	d.setState(StateAwaitingFinalResponse)
	final, err := d.client.Complete(ctx, c, nil)
	if err != nil {
		return Answer{}, err
	}

	text := final.Reply().TextContent()
	if _, again := final.(ToolCallsRequested); again {
		d.log.WarnContext(ctx, "ignoring tool calls in final completion")
	}

	return Answer{Text: text, Sources: sources}, nil
}

func (d *Dispatcher) setState(s State) {
	d.observer.emit(Event{Kind: EventStateChanged, State: s})
}
