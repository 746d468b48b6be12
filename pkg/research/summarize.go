package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter"
	"github.com/germanamz/searchsmart/pkg/websearch"
)

// SummarizeInstruction is the fixed system instruction for page summaries.
const SummarizeInstruction = `You condense web pages for a research assistant.
Extract and condense the content of the page that is relevant to the search query.
Discard noise such as navigation, advertisements, cookie banners, and unrelated sections.
Keep concrete facts, figures, dates, and names. Answer with the condensed content only.`

// DefaultMaxPageChars bounds the page text sent for summarization.
const DefaultMaxPageChars = 20000

// Summarizer compresses a search result's raw text into a focused summary.
type Summarizer interface {
	Summarize(ctx context.Context, query string, r websearch.Result) (string, error)
}

// LLMSummarizer summarizes with one completion per page.
type LLMSummarizer struct {
	completer modeladapter.Completer
	maxChars  int
}

// NewLLMSummarizer creates a summarizer. maxChars <= 0 selects
// DefaultMaxPageChars.
func NewLLMSummarizer(c modeladapter.Completer, maxChars int) *LLMSummarizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxPageChars
	}
	return &LLMSummarizer{completer: c, maxChars: maxChars}
}

// Summarize implements Summarizer. It uses a fresh conversation so the
// session's history is neither sent nor modified.
func (s *LLMSummarizer) Summarize(ctx context.Context, query string, r websearch.Result) (string, error) {
	text := r.Text
	if runes := []rune(text); len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %s\n", query)
	fmt.Fprintf(&b, "Page title: %s\n", r.Title)
	fmt.Fprintf(&b, "Page URL: %s\n\n", r.URL)
	b.WriteString(text)

	c := chat.New(
		message.NewText("system", role.System, SummarizeInstruction),
		message.NewText("user", role.User, b.String()),
	)

	reply, err := s.completer.Complete(ctx, c, nil)
	if err != nil {
		return "", fmt.Errorf("%w: summarize %s: %w", ErrTransport, r.URL, err)
	}

	return strings.TrimSpace(reply.TextContent()), nil
}
