package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/modeladapter"
)

// DefaultTavilyBaseURL is the public Tavily API endpoint.
const DefaultTavilyBaseURL = "https://api.tavily.com"

var _ Searcher = (*Tavily)(nil)

// Tavily searches with the Tavily API. Tavily has no keyword/semantic switch,
// so Request.Type is ignored.
type Tavily struct {
	modeladapter.ModelAdapter
	// Depth is Tavily's search_depth parameter (basic or advanced).
	Depth string
}

// NewTavily creates a Tavily provider. An empty depth means "basic".
func NewTavily(baseURL, apiKey, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}

	t := &Tavily{Depth: depth}
	t.BaseURL = baseURL
	t.Auth = modeladapter.Auth{Key: apiKey}

	return t
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		RawContent    string `json:"raw_content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Search implements Searcher. When raw content is unavailable for a page the
// snippet is used as its text.
func (t *Tavily) Search(ctx context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(t.Auth.Key) == "" {
		return nil, fmt.Errorf("tavily: %w", ErrMissingAPIKey)
	}

	body := tavilyRequest{
		Query:             req.Query,
		MaxResults:        req.MaxResults,
		SearchDepth:       t.Depth,
		IncludeRawContent: req.IncludeText,
	}

	var resp tavilyResponse
	if err := t.PostJSON(ctx, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		text := r.RawContent
		if text == "" {
			text = r.Content
		}
		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
			Text:          text,
		})
	}

	return limit(results, req.MaxResults), nil
}
