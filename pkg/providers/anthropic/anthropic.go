// Package anthropic provides a Completer implementation for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
)

const (
	messagesPath = "/v1/messages"
	apiVersion   = "2023-06-01"

	// DefaultBaseURL is the public Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	defaultMaxTokens = 4096
)

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the Messages API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. The baseURL has no trailing slash.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey, Header: "x-api-key"}
	a.Name = model
	a.MaxTokens = defaultMaxTokens
	a.Headers = map[string]string{"anthropic-version": apiVersion}

	return a
}

// Complete sends the conversation and returns the assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	var resp apiResponse
	if err := a.PostJSON(ctx, messagesPath, a.buildRequest(c, tools), &resp); err != nil {
		return message.Message{}, fmt.Errorf("anthropic: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	})

	return parseResponse(resp), nil
}

// --- wire types ---

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

type apiBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type apiToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type apiResponse struct {
	Content    []apiBlock `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// --- conversion ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:       a.Name,
		MaxTokens:   a.MaxTokens,
		System:      c.SystemPrompt(),
		Temperature: a.Temperature,
		TopP:        a.TopP,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}

	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		req.Tools = append(req.Tools, apiToolDef{Name: t.Name, Description: t.Description, InputSchema: schema})
	}

	c.Each(func(_ int, m message.Message) bool {
		if m.Role != role.System {
			appendMessage(&req.Messages, m)
		}
		return true
	})

	return req
}

// appendMessage converts m into content blocks. Tool results travel in a user
// message, and consecutive blocks with the same role are merged because the
// API requires alternating roles.
func appendMessage(msgs *[]apiMessage, m message.Message) {
	msgRole := "user"
	if m.Role == role.Assistant {
		msgRole = "assistant"
	}

	for _, p := range m.Parts {
		var block apiBlock
		switch v := p.(type) {
		case content.Text:
			if v.Text == "" {
				continue
			}
			block = apiBlock{Type: "text", Text: v.Text}
		case content.ToolCall:
			input := json.RawMessage(v.Arguments)
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			block = apiBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: input}
		case content.ToolResult:
			block = apiBlock{Type: "tool_result", ToolUseID: v.ToolCallID, Content: v.Content, IsError: v.IsError}
		default:
			continue
		}

		if n := len(*msgs); n > 0 && (*msgs)[n-1].Role == msgRole {
			(*msgs)[n-1].Content = append((*msgs)[n-1].Content, block)
			continue
		}
		*msgs = append(*msgs, apiMessage{Role: msgRole, Content: []apiBlock{block}})
	}
}

func parseResponse(resp apiResponse) message.Message {
	var parts []content.Part

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			parts = append(parts, content.Text{Text: block.Text})
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			parts = append(parts, content.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	return message.New("assistant", role.Assistant, parts...)
}
