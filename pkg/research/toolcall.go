package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
)

// SearchToolName is the only tool declared to the model.
const SearchToolName = "search"

var searchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The web search query."
		}
	},
	"required": ["query"]
}`)

// SearchTool returns the declaration of the search tool. It has no handler:
// the dispatcher executes search calls itself.
func SearchTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        SearchToolName,
		Description: "search the web and return URLs with page contents",
		InputSchema: searchSchema,
	}
}

// ToolArgs is the typed argument record of one declared tool.
type ToolArgs interface {
	ToolName() string
}

// SearchArgs are the arguments of the search tool.
type SearchArgs struct {
	Query string `json:"query"`
}

// ToolName implements ToolArgs.
func (SearchArgs) ToolName() string { return SearchToolName }

// ToolCallRequest is a parsed tool call.
type ToolCallRequest struct {
	ID   string
	Args ToolArgs
}

// ParseToolCall turns the model's raw tool call into a typed request.
// Undeclared tools fail with ErrUnknownTool; arguments that do not decode, or
// a missing query, fail with ErrMalformedToolArguments.
func ParseToolCall(tc content.ToolCall) (ToolCallRequest, error) {
	switch tc.Name {
	case SearchToolName:
		var args SearchArgs
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			return ToolCallRequest{}, fmt.Errorf("%w: %s (id %s): %w", ErrMalformedToolArguments, tc.Name, tc.ID, err)
		}
		args.Query = strings.TrimSpace(args.Query)
		if args.Query == "" {
			return ToolCallRequest{}, fmt.Errorf("%w: %s (id %s): query is required", ErrMalformedToolArguments, tc.Name, tc.ID)
		}
		return ToolCallRequest{ID: tc.ID, Args: args}, nil
	default:
		return ToolCallRequest{}, fmt.Errorf("%w: %q (id %s)", ErrUnknownTool, tc.Name, tc.ID)
	}
}
