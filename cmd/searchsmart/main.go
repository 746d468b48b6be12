package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

const version = "0.1.0"

// cliOptions are the flags shared by every command.
type cliOptions struct {
	configPath string
	dir        string
	envFile    string
}

func registerCommon(fs *flag.FlagSet) *cliOptions {
	var o cliOptions
	fs.StringVar(&o.configPath, "config", "", "path to configuration file (default: .searchsmart/config.yaml or searchsmart.yaml)")
	fs.StringVar(&o.dir, "dir", ".searchsmart", "path to .searchsmart directory")
	fs.StringVar(&o.envFile, "env", ".env", "path to .env file (ignored if missing)")
	return &o
}

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			configCmd := flag.NewFlagSet("config", flag.ExitOnError)
			configCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: searchsmart config [flags]\n\nCreate or edit the config file interactively.\n\nFlags:\n")
				configCmd.PrintDefaults()
			}
			opts := registerCommon(configCmd)
			_ = configCmd.Parse(os.Args[2:])

			exit(runConfigForm(*opts))
			return
		case "serve":
			serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
			serveCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: searchsmart serve [flags]\n\nServe research sessions over HTTP.\n\nFlags:\n")
				serveCmd.PrintDefaults()
			}
			opts := registerCommon(serveCmd)
			addr := serveCmd.String("addr", "", "listen address (overrides server.addr in config)")
			_ = serveCmd.Parse(os.Args[2:])

			exit(runServe(*opts, *addr))
			return
		case "mcp":
			mcpCmd := flag.NewFlagSet("mcp", flag.ExitOnError)
			mcpCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: searchsmart mcp [flags]\n\nExpose the search tool as an MCP server over stdio.\n\nFlags:\n")
				mcpCmd.PrintDefaults()
			}
			opts := registerCommon(mcpCmd)
			_ = mcpCmd.Parse(os.Args[2:])

			exit(runMCP(*opts))
			return
		case "version":
			fmt.Println("searchsmart", version)
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: searchsmart [flags]\n       searchsmart <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  config   Create or edit the config file interactively\n  serve    Serve research sessions over HTTP\n  mcp      Expose the search tool as an MCP server over stdio\n  version  Print the version\n")
	}

	opts := registerCommon(flag.CommandLine)
	results := flag.Int("results", 0, "results per search for this session (overrides search.max_results)")
	flag.Parse()

	exit(run(*opts, *results))
}

func exit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts cliOptions, results int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, closeLog, err := loadEngine(opts, nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	sess, err := eng.NewSession(sessionOptions(results))
	if err != nil {
		return err
	}

	model := newAppModel(ctx, sess, eng.Events(), eng.Usage())

	p := tea.NewProgram(model)

	// Send the program reference so the model can start the bridge goroutine.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	_, err = p.Run()
	return err
}
