// Package mcpserver exposes toolbox tools to external MCP clients.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server serves the executable tools of a ToolBox over MCP.
type Server struct {
	server *mcp.Server
	count  int
}

// New creates a Server advertising the given implementation name and version
// and registers every tool of tb that has a handler. Declaration-only tools
// are skipped since an MCP client could not call them.
func New(name, version string, tb *toolbox.ToolBox) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}

	for _, t := range tb.Tools() {
		if t.Handler == nil {
			continue
		}
		s.server.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, handlerFor(t.Handler))
		s.count++
	}

	return s
}

// ToolCount returns how many tools the server exposes.
func (s *Server) ToolCount() int { return s.count }

// Serve reads MCP requests from in and writes responses to out until ctx is
// cancelled or the transport closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	})
}

func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// handlerFor adapts a toolbox handler. Handler errors are reported as tool
// errors so the client sees the message instead of a protocol failure.
func handlerFor(h toolbox.Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}

		result, err := h(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
