package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/germanamz/searchsmart/pkg/modeladapter"
)

// DefaultExaBaseURL is the public Exa API endpoint.
const DefaultExaBaseURL = "https://api.exa.ai"

var _ Searcher = (*Exa)(nil)

// Exa searches with the Exa API, which can return full page text alongside
// each result.
type Exa struct {
	modeladapter.ModelAdapter
}

// NewExa creates an Exa provider. The baseURL has no trailing slash.
func NewExa(baseURL, apiKey string) *Exa {
	e := &Exa{}
	e.BaseURL = baseURL
	e.Auth = modeladapter.Auth{Key: apiKey, Header: "x-api-key"}

	return e
}

type exaRequest struct {
	Query      string       `json:"query"`
	NumResults int          `json:"numResults,omitempty"`
	Type       string       `json:"type,omitempty"`
	Contents   *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		PublishedDate string `json:"publishedDate"`
		Text          string `json:"text"`
	} `json:"results"`
}

// Search implements Searcher.
func (e *Exa) Search(ctx context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(e.Auth.Key) == "" {
		return nil, fmt.Errorf("exa: %w", ErrMissingAPIKey)
	}

	body := exaRequest{
		Query:      req.Query,
		NumResults: req.MaxResults,
		Type:       string(req.Type),
	}
	if req.IncludeText {
		body.Contents = &exaContents{Text: true}
	}

	var resp exaResponse
	if err := e.PostJSON(ctx, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("exa: %w", err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
			Text:          r.Text,
		})
	}

	return limit(results, req.MaxResults), nil
}

// limit truncates results to n when n is positive.
func limit(results []Result, n int) []Result {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}
