package research

import (
	"encoding/json"
	"testing"

	"github.com/germanamz/searchsmart/pkg/chats/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTool(t *testing.T) {
	tool := SearchTool()
	assert.Equal(t, "search", tool.Name)
	assert.Equal(t, "search the web and return URLs with page contents", tool.Description)
	assert.Nil(t, tool.Handler)

	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(tool.InputSchema, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "query")
	assert.Equal(t, []string{"query"}, schema.Required)
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name    string
		call    content.ToolCall
		want    ToolCallRequest
		wantErr error
	}{
		{
			name: "search",
			call: content.ToolCall{ID: "c1", Name: "search", Arguments: `{"query":"Tokyo weather today"}`},
			want: ToolCallRequest{ID: "c1", Args: SearchArgs{Query: "Tokyo weather today"}},
		},
		{
			name: "query is trimmed",
			call: content.ToolCall{ID: "c2", Name: "search", Arguments: `{"query":"  go 1.25  "}`},
			want: ToolCallRequest{ID: "c2", Args: SearchArgs{Query: "go 1.25"}},
		},
		{
			name:    "invalid json",
			call:    content.ToolCall{ID: "c3", Name: "search", Arguments: `{"query":`},
			wantErr: ErrMalformedToolArguments,
		},
		{
			name:    "missing query",
			call:    content.ToolCall{ID: "c4", Name: "search", Arguments: `{}`},
			wantErr: ErrMalformedToolArguments,
		},
		{
			name:    "wrong type",
			call:    content.ToolCall{ID: "c5", Name: "search", Arguments: `{"query":42}`},
			wantErr: ErrMalformedToolArguments,
		},
		{
			name:    "unknown tool",
			call:    content.ToolCall{ID: "c6", Name: "fetch", Arguments: `{"url":"x"}`},
			wantErr: ErrUnknownTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolCall(tt.call)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, SearchToolName, got.Args.ToolName())
		})
	}
}
