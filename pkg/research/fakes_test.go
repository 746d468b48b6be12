package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/germanamz/searchsmart/pkg/websearch"
)

var errBoom = errors.New("boom")

type completionCall struct {
	tools    []toolbox.Tool
	messages []message.Message
}

// fakeCompleter answers conversation completions from a script and
// summarization completions with "summary of <url>".
type fakeCompleter struct {
	replies    []message.Message
	errs       []error
	calls      []completionCall
	summaries  []string
	summaryErr error
}

func (f *fakeCompleter) Complete(_ context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	if c.SystemPrompt() == SummarizeInstruction {
		if f.summaryErr != nil {
			return message.Message{}, f.summaryErr
		}
		last, _ := c.Last()
		url := pageURL(last.TextContent())
		f.summaries = append(f.summaries, url)
		return message.NewText("assistant", role.Assistant, "summary of "+url), nil
	}

	i := len(f.calls)
	f.calls = append(f.calls, completionCall{tools: tools, messages: c.Messages()})

	if i < len(f.errs) && f.errs[i] != nil {
		return message.Message{}, f.errs[i]
	}
	if i >= len(f.replies) {
		return message.Message{}, fmt.Errorf("unexpected completion %d", i+1)
	}
	return f.replies[i], nil
}

func pageURL(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if after, ok := strings.CutPrefix(line, "Page URL: "); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// fakeSearcher returns canned results per query and records requests.
type fakeSearcher struct {
	results  map[string][]websearch.Result
	err      error
	requests []websearch.Request
	// onSearch runs at the start of every provider call.
	onSearch func()
}

func (f *fakeSearcher) Search(_ context.Context, req websearch.Request) ([]websearch.Result, error) {
	f.requests = append(f.requests, req)
	if f.onSearch != nil {
		f.onSearch()
	}
	if f.err != nil {
		return nil, f.err
	}
	res := f.results[req.Query]
	if req.MaxResults > 0 && len(res) > req.MaxResults {
		res = res[:req.MaxResults]
	}
	return res, nil
}

func page(name string) websearch.Result {
	return websearch.Result{
		Title: strings.ToUpper(name[:1]) + name[1:],
		URL:   "https://" + name + ".example.com",
		Text:  "full text of " + name,
	}
}

func textReply(text string) message.Message {
	return message.NewText("assistant", role.Assistant, text)
}

func searchCall(id, query string) content.ToolCall {
	return content.ToolCall{
		ID:        id,
		Name:      SearchToolName,
		Arguments: fmt.Sprintf(`{"query":%q}`, query),
	}
}

func toolCallReply(calls ...content.ToolCall) message.Message {
	parts := make([]content.Part, len(calls))
	for i, c := range calls {
		parts[i] = c
	}
	return message.New("assistant", role.Assistant, parts...)
}

func roles(c *chat.Chat) []role.Role {
	var out []role.Role
	c.Each(func(_ int, m message.Message) bool {
		out = append(out, m.Role)
		return true
	})
	return out
}
