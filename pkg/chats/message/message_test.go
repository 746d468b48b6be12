package message

import (
	"testing"

	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/role"

	"github.com/stretchr/testify/assert"
)

func TestNewText(t *testing.T) {
	msg := NewText("user", role.User, "what's new in Go?")

	assert.Equal(t, "user", msg.Sender)
	assert.Equal(t, role.User, msg.Role)
	assert.Len(t, msg.Parts, 1)
	assert.Equal(t, "what's new in Go?", msg.Parts[0].(content.Text).Text)
}

func TestMessage_TextContent(t *testing.T) {
	msg := New("assistant", role.Assistant,
		content.Text{Text: "let me "},
		content.ToolCall{ID: "1", Name: "search"},
		content.Text{Text: "look"},
	)

	assert.Equal(t, "let me look", msg.TextContent())
}

func TestMessage_TextContent_NoParts(t *testing.T) {
	msg := New("user", role.User)
	assert.Empty(t, msg.TextContent())
}

func TestMessage_ToolCalls(t *testing.T) {
	tc1 := content.ToolCall{ID: "1", Name: "search", Arguments: `{"query":"go"}`}
	tc2 := content.ToolCall{ID: "2", Name: "search", Arguments: `{"query":"rust"}`}
	msg := New("assistant", role.Assistant, content.Text{Text: "searching"}, tc1, tc2)

	calls := msg.ToolCalls()
	assert.Equal(t, []content.ToolCall{tc1, tc2}, calls)
}

func TestMessage_ToolCalls_None(t *testing.T) {
	msg := NewText("user", role.User, "hello")
	assert.Empty(t, msg.ToolCalls())
}

func TestMessage_ToolResults(t *testing.T) {
	tr := content.ToolResult{ToolCallID: "1", Content: "[]"}
	msg := New("tool", role.Tool, tr)

	assert.Equal(t, []content.ToolResult{tr}, msg.ToolResults())
}
