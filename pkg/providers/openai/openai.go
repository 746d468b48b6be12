// Package openai provides a Completer implementation for the OpenAI Chat
// Completions API and compatible endpoints.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
)

const completionsPath = "/v1/chat/completions"

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

var _ modeladapter.Completer = (*Adapter)(nil)

// ErrEmptyChoices is returned when the API answers without any choice.
var ErrEmptyChoices = errors.New("openai: empty choices in response")

// Adapter implements modeladapter.Completer for the Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. The baseURL has no trailing slash.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model

	return a
}

// Complete sends the conversation and returns the assistant's reply, which
// carries either text or tool calls.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	var resp apiResponse
	if err := a.PostJSON(ctx, completionsPath, a.buildRequest(c, tools), &resp); err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return message.Message{}, ErrEmptyChoices
	}

	return parseChoice(resp.Choices[0]), nil
}

// --- wire types ---

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Tools       []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:       a.Name,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
		TopP:        a.TopP,
	}

	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		req.Tools = append(req.Tools, apiToolDef{
			Type: "function",
			Function: apiToolDefFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}

	c.Each(func(_ int, m message.Message) bool {
		req.Messages = append(req.Messages, toAPIMessages(m)...)
		return true
	})

	return req
}

// toAPIMessages converts one conversation message. A tool message expands to
// one API message per ToolResult part.
func toAPIMessages(m message.Message) []apiMessage {
	switch m.Role {
	case role.Assistant:
		msg := apiMessage{Role: "assistant"}
		if text := m.TextContent(); text != "" {
			msg.Content = &text
		}
		for _, tc := range m.ToolCalls() {
			msg.ToolCalls = append(msg.ToolCalls, apiToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: apiToolFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		return []apiMessage{msg}

	case role.Tool:
		var out []apiMessage
		for _, tr := range m.ToolResults() {
			text := tr.Content
			out = append(out, apiMessage{Role: "tool", Content: &text, ToolCallID: tr.ToolCallID})
		}
		return out

	default:
		text := m.TextContent()
		return []apiMessage{{Role: m.Role.String(), Content: &text}}
	}
}

func parseChoice(choice apiChoice) message.Message {
	var parts []content.Part

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		parts = append(parts, content.Text{Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return message.New("assistant", role.Assistant, parts...)
}
