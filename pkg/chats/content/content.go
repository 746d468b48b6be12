// Package content defines the content parts carried by conversation messages.
package content

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall represents an assistant's request to invoke a tool.
// Arguments holds the raw JSON string exactly as the model produced it; it is
// parsed by the dispatcher, never by the transport.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Metadata  map[string]string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult holds the output of a tool invocation, tagged with the id of the
// call it answers.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
