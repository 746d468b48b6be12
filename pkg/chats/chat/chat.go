// Package chat provides the append-only conversation store for a research
// session.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
)

// ErrInvalidMessage is returned by Append for a message without a known role
// or without content.
var ErrInvalidMessage = errors.New("chat: invalid message")

// Chat is an ordered, append-only conversation. Messages are never reordered
// or removed. The zero value is ready to use.
// Chat is not safe for concurrent use; callers must synchronize externally.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with the given messages. The messages are
// not validated.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append validates and adds one or more messages to the end of the
// conversation. If any message is invalid nothing is appended.
func (c *Chat) Append(msgs ...message.Message) error {
	for i, m := range msgs {
		if err := validate(m); err != nil {
			return fmt.Errorf("%w: message %d: %s", ErrInvalidMessage, i, err)
		}
	}

	c.messages = append(c.messages, msgs...)

	return nil
}

func validate(m message.Message) error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown role %q", m.Role)
	}
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); !ok || strings.TrimSpace(t.Text) != "" {
			return nil
		}
	}
	return errors.New("empty content")
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return len(c.messages)
}

// At returns the message at the given index.
// It panics if the index is out of range.
func (c *Chat) At(index int) message.Message {
	return c.messages[index]
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages in order.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// Each iterates over messages, calling fn for each one. If fn returns false,
// iteration stops early.
func (c *Chat) Each(fn func(int, message.Message) bool) {
	for i, m := range c.messages {
		if !fn(i, m) {
			return
		}
	}
}

// SystemPrompt returns the text content of the first system message, or an
// empty string if there is none.
func (c *Chat) SystemPrompt() string {
	for _, m := range c.messages {
		if m.Role == role.System {
			return m.TextContent()
		}
	}
	return ""
}
