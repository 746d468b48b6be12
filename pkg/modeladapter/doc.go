// Package modeladapter defines the completion interface shared by LLM
// providers and the embeddable HTTP base they are built on.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with HTTP helpers, auth, and custom headers
//   - [RateLimitedCompleter], an opt-in wrapper adding request throttling and 429 retry
//   - [github.com/germanamz/searchsmart/pkg/modeladapter/usage], a thread-safe token usage tracker
//
// Sampling configuration (model name, temperature, top_p, max tokens) lives on
// the ModelAdapter struct. Concrete adapters live in pkg/providers.
package modeladapter
