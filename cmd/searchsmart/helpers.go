package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/searchsmart/pkg/engine"
	"github.com/germanamz/searchsmart/pkg/research"
)

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate shortens s to at most width terminal cells, appending "..." when
// it cuts. Newlines are replaced with spaces for single-line display.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// fmtTokens formats a token count for display, using k/M suffixes.
func fmtTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// fmtDuration formats a duration for display.
func fmtDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", mins, sec)
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfigPath returns the config file to use. Priority:
// 1. Explicit --config flag (non-empty)
// 2. <dir>/config.yaml (if it exists)
// 3. searchsmart.yaml
func resolveConfigPath(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}

	dirConfig := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(dirConfig); err == nil {
		return dirConfig
	}

	return "searchsmart.yaml"
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. Output goes to cfg.File when set,
// otherwise to fallback; a nil fallback discards everything. The returned
// close function releases the log file.
func newLogger(cfg engine.LogConfig, fallback io.Writer) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	w := fallback
	closeFn := noop
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, noop, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	if w == nil {
		return slog.New(slog.DiscardHandler), closeFn, nil
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	return slog.New(h), closeFn, nil
}

// loadEngine loads .env and the config, then builds the logger and engine.
func loadEngine(opts cliOptions, logFallback io.Writer) (*engine.Engine, func() error, error) {
	noop := func() error { return nil }

	if err := loadDotEnv(opts.envFile); err != nil {
		return nil, noop, err
	}

	cfg, err := engine.LoadConfig(resolveConfigPath(opts.configPath, opts.dir))
	if err != nil {
		return nil, noop, err
	}
	cfg.Dir = opts.dir

	log, closeLog, err := newLogger(cfg.Log, logFallback)
	if err != nil {
		return nil, noop, err
	}

	eng, err := engine.New(cfg, log)
	if err != nil {
		_ = closeLog()
		return nil, noop, err
	}

	return eng, closeLog, nil
}

func sessionOptions(results int) engine.SessionOptions {
	return engine.SessionOptions{MaxResults: results}
}

// renderUserMessage formats a user message for the terminal scrollback,
// indenting continuation lines to align with the first line.
func renderUserMessage(text string) string {
	prefix := userPrefixStyle.Render("You > ")
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return userBlockStyle.Render(prefix + text)
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(lines[0])
	for _, line := range lines[1:] {
		sb.WriteString("\n      ")
		sb.WriteString(line)
	}
	return userBlockStyle.Render(sb.String())
}

// renderSources lists citations as "title - url" lines, each fitted to width.
func renderSources(sources []research.Source, width int) string {
	if len(sources) == 0 {
		return ""
	}

	width = max(width-4, 20)

	var sb strings.Builder
	sb.WriteString(sourceHeaderStyle.Render("Sources"))
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		line := fmt.Sprintf("%d. %s", i+1, title)
		sb.WriteString("\n")
		sb.WriteString(sourceTitleStyle.Render(truncate(line, width)))
		sb.WriteString("\n   ")
		sb.WriteString(sourceURLStyle.Render(truncate(s.URL, width-3)))
	}
	return sourceBlockStyle.Render(sb.String())
}

// renderAnswer formats a turn's answer with its sources above the text.
func renderAnswer(a research.Answer, width int) string {
	var parts []string
	if src := renderSources(a.Sources, width); src != "" {
		parts = append(parts, src)
	}
	text := a.Text
	if strings.TrimSpace(text) == "" {
		text = "_(no answer)_"
	}
	parts = append(parts, answerPrefixStyle.Render("Assistant >")+"\n"+answerBlockStyle.Render(renderMarkdown(text)))
	return strings.Join(parts, "\n\n")
}

// progressText describes a research event for the spinner line. It returns
// false for events that do not change the text.
func progressText(e research.Event) (string, bool) {
	switch e.Kind {
	case research.EventSearchStart:
		return "Searching for: " + e.Query, true
	case research.EventPageSummarized:
		title := e.Title
		if title == "" {
			title = e.URL
		}
		return "Reading: " + title, true
	case research.EventStateChanged:
		switch e.State {
		case research.StateAwaitingFirstResponse:
			return "Thinking...", true
		case research.StateAwaitingFinalResponse:
			return "Writing the answer...", true
		}
	}
	return "", false
}
