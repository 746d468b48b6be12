package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/germanamz/searchsmart/pkg/websearch"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Logger   *slog.Logger
	Observer Observer
}

// Service searches the web and summarizes every page it has not seen before.
// The seen set lives as long as the Service, which is one per session.
// A Service is not safe for concurrent use.
type Service struct {
	searcher   websearch.Searcher
	summarizer Summarizer
	log        *slog.Logger
	observer   Observer
	seen       map[string]struct{}
}

// NewService creates a Service with an empty seen set.
func NewService(searcher websearch.Searcher, summarizer Summarizer, opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Service{
		searcher:   searcher,
		summarizer: summarizer,
		log:        log,
		observer:   opts.Observer,
		seen:       make(map[string]struct{}),
	}
}

// Seen reports whether url was summarized earlier in this session.
func (s *Service) Seen(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// SeenCount returns the number of distinct URLs summarized so far.
func (s *Service) SeenCount() int { return len(s.seen) }

// Search runs one query and returns the summaries of unseen pages together
// with their citations; results[i] and sources[i] describe the same page.
// Pages already seen in this session, or repeated within this response, are
// skipped silently. Any search or summarization error aborts the call: no
// partial results are returned and the seen set is left untouched.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]SummarizedResult, []Source, error) {
	r := s.newRound()
	results, sources, err := r.search(ctx, query, maxResults)
	if err != nil {
		return nil, nil, err
	}
	r.commit()
	return results, sources, nil
}

// round groups the searches answering one model response. Pages taken by an
// earlier search of the round are skipped by later ones, and nothing reaches
// the seen set until the round commits.
type round struct {
	s     *Service
	taken map[string]struct{}
	// found, when set, runs after each provider call returns and before its
	// pages are summarized.
	found func()
}

func (s *Service) newRound() *round {
	return &round{s: s, taken: make(map[string]struct{})}
}

func (r *round) search(ctx context.Context, query string, maxResults int) ([]SummarizedResult, []Source, error) {
	s := r.s
	found, err := s.searcher.Search(ctx, websearch.Request{
		Query:       query,
		MaxResults:  maxResults,
		IncludeText: true,
		Type:        websearch.TypeAuto,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: search %q: %w", ErrTransport, query, err)
	}
	if r.found != nil {
		r.found()
	}

	results := make([]SummarizedResult, 0, len(found))
	sources := make([]Source, 0, len(found))
	taken := make(map[string]struct{}, len(found))

	for _, res := range found {
		_, inRound := r.taken[res.URL]
		_, inCall := taken[res.URL]
		if inRound || inCall || s.Seen(res.URL) {
			s.log.DebugContext(ctx, "skipping seen page", "query", query, "url", res.URL)
			continue
		}
		taken[res.URL] = struct{}{}

		summary, err := s.summarizer.Summarize(ctx, query, res)
		if err != nil {
			return nil, nil, err
		}

		sr := SummarizedResult{
			Metadata: Metadata{Title: res.Title, URL: res.URL, PublishedDate: res.PublishedDate},
			Content:  summary,
		}
		results = append(results, sr)
		sources = append(sources, SourceOf(sr))

		s.observer.emit(Event{Kind: EventPageSummarized, Query: query, Title: res.Title, URL: res.URL})
	}

	for url := range taken {
		r.taken[url] = struct{}{}
	}

	s.log.InfoContext(ctx, "search finished",
		"query", query,
		"returned", len(found),
		"new", len(results),
	)

	return results, sources, nil
}

func (r *round) commit() {
	for url := range r.taken {
		r.s.seen[url] = struct{}{}
	}
}
