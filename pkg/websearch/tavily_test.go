package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/germanamz/searchsmart/pkg/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavily_Search(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))

		body := decode(t, r)
		assert.Equal(t, "go generics", body["query"])
		assert.InDelta(t, 5, body["max_results"], 0)
		assert.Equal(t, "basic", body["search_depth"])
		assert.Equal(t, true, body["include_raw_content"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Tutorial", "url": "https://go.dev/doc/tutorial/generics", "content": "snippet", "raw_content": "full page"},
				{"title": "Blog", "url": "https://go.dev/blog/intro-generics", "content": "only snippet", "published_date": "2022-03-22"},
			},
		})
	})

	results, err := websearch.NewTavily(url, "tvly-key", "").Search(context.Background(), websearch.Request{
		Query:       "go generics",
		MaxResults:  5,
		IncludeText: true,
		Type:        websearch.TypeAuto,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "full page", results[0].Text)
	assert.Equal(t, "only snippet", results[1].Text)
	assert.Equal(t, "2022-03-22", results[1].PublishedDate)
}

func TestTavily_Search_MissingKey(t *testing.T) {
	_, err := websearch.NewTavily("http://unused", " ", "advanced").Search(context.Background(), websearch.Request{Query: "q"})
	require.ErrorIs(t, err, websearch.ErrMissingAPIKey)
}
