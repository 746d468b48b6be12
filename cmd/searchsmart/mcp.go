package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/searchsmart/pkg/tools/mcpserver"
)

// runMCP serves the search tool over stdio. Stdout carries the protocol, so
// logs default to stderr.
func runMCP(opts cliOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, closeLog, err := loadEngine(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	srv := mcpserver.New("searchsmart", version, eng.SearchToolBox())
	eng.Logger().Info("serving mcp over stdio", "tools", srv.ToolCount())

	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
