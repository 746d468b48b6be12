package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "search",
		Description: "search the web",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", err
			}
			if args.Query == "" {
				return "", errors.New("query is required")
			}
			return "results for " + args.Query, nil
		},
	}
}

// connect starts s on in-memory transports and returns a connected client
// session. The server goroutine is stopped in t.Cleanup.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.run(ctx, serverTransport) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func TestNew_SkipsDeclarationOnlyTools(t *testing.T) {
	s := New("searchsmart", "test", toolbox.New(searchTool(), toolbox.Tool{Name: "decl"}))
	assert.Equal(t, 1, s.ToolCount())
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, New("searchsmart", "test", toolbox.New(searchTool())))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "search", res.Tools[0].Name)
	assert.Equal(t, "search the web", res.Tools[0].Description)
}

func TestServer_CallTool(t *testing.T) {
	session := connect(t, New("searchsmart", "test", toolbox.New(searchTool())))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "golang"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "results for golang", text.Text)
}

func TestServer_CallTool_HandlerError(t *testing.T) {
	session := connect(t, New("searchsmart", "test", toolbox.New(searchTool())))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": ""},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "query is required", text.Text)
}
