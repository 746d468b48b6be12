package research

import (
	"context"
	"fmt"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
)

// Response is the classified reply of one completion: either FinalAnswer or
// ToolCallsRequested.
type Response interface {
	Reply() message.Message
}

// FinalAnswer is a reply without tool calls.
type FinalAnswer struct {
	Text    string
	Message message.Message
}

// Reply implements Response.
func (f FinalAnswer) Reply() message.Message { return f.Message }

// ToolCallsRequested is a reply asking for one or more tool invocations, in
// the order the model produced them.
type ToolCallsRequested struct {
	Calls   []content.ToolCall
	Message message.Message
}

// Reply implements Response.
func (t ToolCallsRequested) Reply() message.Message { return t.Message }

// Client wraps a Completer and classifies its replies.
type Client struct {
	completer modeladapter.Completer
}

// NewClient creates a Client.
func NewClient(c modeladapter.Completer) *Client {
	return &Client{completer: c}
}

// Complete sends the conversation with the given tool declarations (nil for
// none). Failures are wrapped in ErrTransport and never retried here.
func (c *Client) Complete(ctx context.Context, ch *chat.Chat, tools []toolbox.Tool) (Response, error) {
	reply, err := c.completer.Complete(ctx, ch, tools)
	if err != nil {
		return nil, fmt.Errorf("%w: completion: %w", ErrTransport, err)
	}

	if calls := reply.ToolCalls(); len(calls) > 0 {
		return ToolCallsRequested{Calls: calls, Message: reply}, nil
	}

	return FinalAnswer{Text: reply.TextContent(), Message: reply}, nil
}
