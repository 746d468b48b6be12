// Package websearch defines the web search provider contract and its
// implementations.
package websearch

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned by providers constructed without credentials.
var ErrMissingAPIKey = errors.New("websearch: API key is missing")

// Type hints how the provider should interpret the query.
type Type string

const (
	// TypeAuto lets the provider choose between keyword and semantic search.
	TypeAuto    Type = "auto"
	TypeKeyword Type = "keyword"
	TypeNeural  Type = "neural"
)

// Request is a single search.
type Request struct {
	Query       string
	MaxResults  int
	IncludeText bool // Request full page text with each result.
	Type        Type
}

// Result is one page returned by a provider, in provider order.
type Result struct {
	Title         string
	URL           string
	PublishedDate string
	Text          string
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Result, error)
}

// SearcherFunc adapts a plain function to the Searcher interface.
type SearcherFunc func(ctx context.Context, req Request) ([]Result, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, req Request) ([]Result, error) {
	return f(ctx, req)
}
