package research

import "errors"

var (
	// ErrTransport wraps any failure talking to the completion or search API.
	ErrTransport = errors.New("research: transport error")
	// ErrMalformedToolArguments is returned when a tool call's arguments do
	// not parse into the declared argument record.
	ErrMalformedToolArguments = errors.New("research: malformed tool arguments")
	// ErrUnknownTool is returned for a tool call naming an undeclared tool.
	ErrUnknownTool = errors.New("research: unknown tool")
)

// Metadata describes the page a summary was produced from.
type Metadata struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date,omitempty"`
}

// SummarizedResult is one page condensed for the model. A tool message's
// content is a JSON array of these.
type SummarizedResult struct {
	Metadata Metadata `json:"metadata"`
	Content  string   `json:"content"`
}

// Source is a user-facing citation.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceOf projects a summarized result into its citation.
func SourceOf(r SummarizedResult) Source {
	return Source{Title: r.Metadata.Title, URL: r.Metadata.URL}
}

// Answer is the outcome of one user turn.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}
