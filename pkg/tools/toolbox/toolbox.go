// Package toolbox holds tool declarations offered to a model or served to an
// external client.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/germanamz/searchsmart/pkg/chats/content"
)

// ToolBox is a named collection of tools.
type ToolBox struct {
	tools map[string]Tool
}

// New creates a ToolBox holding the given tools.
func New(tools ...Tool) *ToolBox {
	tb := &ToolBox{tools: make(map[string]Tool, len(tools))}
	tb.Register(tools...)
	return tb
}

// Register adds one or more tools. A tool with the same name is replaced.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		tb.tools[t.Name] = t
	}
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Tools returns all registered tools sorted by name.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.tools))
	for _, t := range tb.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Call executes a tool call and returns a ToolResult. If the tool is not found,
// has no handler, or the handler fails, the result has IsError set.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	t, ok := tb.tools[tc.Name]
	if !ok || t.Handler == nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    fmt.Sprintf("tool not found: %s", tc.Name),
			IsError:    true,
		}
	}

	result, err := t.Handler(ctx, json.RawMessage(tc.Arguments))
	if err != nil {
		return content.ToolResult{
			ToolCallID: tc.ID,
			Content:    err.Error(),
			IsError:    true,
		}
	}

	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    result,
	}
}
