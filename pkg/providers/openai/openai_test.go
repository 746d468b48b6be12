package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/providers/openai"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *openai.Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.New(srv.URL, "test-key", "gpt-4o")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	return req
}

func textReply(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	}
}

var searchTool = toolbox.Tool{
	Name:        "search",
	Description: "search the web and return URLs with page contents",
	InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
}

func TestComplete_SimpleText(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-4o", req["model"])
		assert.InDelta(t, 1.0, req["temperature"], 1e-9)
		assert.InDelta(t, 1.0, req["top_p"], 1e-9)
		assert.NotContains(t, req, "tools")

		msgs, _ := req["messages"].([]any)
		require.Len(t, msgs, 2)
		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		writeJSON(t, w, textReply("Hello there!"))
	})
	one := 1.0
	adapter.Temperature = &one
	adapter.TopP = &one

	c := chat.New(
		message.NewText("system", role.System, "You are a research assistant."),
		message.NewText("user", role.User, "Hi"),
	)

	msg, err := adapter.Complete(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "Hello there!", msg.TextContent())
	assert.Empty(t, msg.ToolCalls())

	last, ok := adapter.Usage.Last()
	require.True(t, ok)
	assert.Equal(t, 10, last.InputTokens)
	assert.Equal(t, 5, last.OutputTokens)
}

func TestComplete_ZeroSamplingSent(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		require.Contains(t, req, "temperature")
		require.Contains(t, req, "top_p")
		assert.InDelta(t, 0.0, req["temperature"], 1e-9)
		assert.InDelta(t, 0.0, req["top_p"], 1e-9)
		writeJSON(t, w, textReply("ok"))
	})
	zero := 0.0
	adapter.Temperature = &zero
	adapter.TopP = &zero

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.NoError(t, err)
}

func TestComplete_UnsetSamplingOmitted(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		assert.NotContains(t, req, "temperature")
		assert.NotContains(t, req, "top_p")
		writeJSON(t, w, textReply("ok"))
	})

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.NoError(t, err)
}

func TestComplete_ToolCallRoundTrip(t *testing.T) {
	calls := 0

	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		req := readBody(t, r)

		if calls == 1 {
			tools, _ := req["tools"].([]any)
			require.Len(t, tools, 1)
			fn, _ := tools[0].(map[string]any)["function"].(map[string]any)
			assert.Equal(t, "search", fn["name"])

			writeJSON(t, w, map[string]any{
				"choices": []map[string]any{{
					"message": map[string]any{
						"role":    "assistant",
						"content": nil,
						"tool_calls": []map[string]any{{
							"id":       "call_1",
							"type":     "function",
							"function": map[string]any{"name": "search", "arguments": `{"query":"Tokyo weather today"}`},
						}},
					},
					"finish_reason": "tool_calls",
				}},
				"usage": map[string]any{"prompt_tokens": 15, "completion_tokens": 8},
			})
			return
		}

		assert.NotContains(t, req, "tools")

		msgs, _ := req["messages"].([]any)
		require.Len(t, msgs, 3)

		assistant, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		assert.Nil(t, assistant["content"])
		assert.Len(t, assistant["tool_calls"], 1)

		tool, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", tool["role"])
		assert.Equal(t, "call_1", tool["tool_call_id"])
		assert.Equal(t, "[]", tool["content"])

		writeJSON(t, w, textReply("It is sunny in Tokyo."))
	})

	c := chat.New(message.NewText("user", role.User, "What's the weather in Tokyo?"))

	msg, err := adapter.Complete(context.Background(), c, []toolbox.Tool{searchTool})
	require.NoError(t, err)

	tcs := msg.ToolCalls()
	require.Len(t, tcs, 1)
	assert.Equal(t, "call_1", tcs[0].ID)
	assert.Equal(t, "search", tcs[0].Name)
	assert.JSONEq(t, `{"query":"Tokyo weather today"}`, tcs[0].Arguments)

	require.NoError(t, c.Append(msg, message.New("tool", role.Tool, content.ToolResult{ToolCallID: "call_1", Content: "[]"})))

	msg, err = adapter.Complete(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, "It is sunny in Tokyo.", msg.TextContent())

	assert.Equal(t, 25, adapter.Usage.Total().InputTokens)
}

func TestComplete_EmptyChoices(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"choices": []any{}})
	})

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.ErrorIs(t, err, openai.ErrEmptyChoices)
}

func TestComplete_HTTPError(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	})

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)

	var rle *modeladapter.RateLimitError
	assert.ErrorAs(t, err, &rle)
}
