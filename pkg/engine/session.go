package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/research"
)

var (
	// ErrSessionBusy is returned when a Send is already running.
	ErrSessionBusy = errors.New("engine: another Send is already active")
	// ErrSessionStarted is returned when settings change after the first turn.
	ErrSessionStarted = errors.New("engine: session already started")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("engine: session not found")
)

// SessionOptions configures a new session.
type SessionOptions struct {
	MaxResults int // Pages per search; zero uses the configured default.
}

// Session represents one conversation. It owns a research agent with its own
// chat and seen-page set. Only one Send call may be active at a time.
type Session struct {
	id      string
	agent   *research.Agent
	events  *EventBus
	log     *slog.Logger
	created time.Time

	mu      sync.Mutex
	active  bool
	started bool
	turns   int
	history []message.Message
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.created }

// History returns the conversation as of the last finished turn, system
// prompt included. It is safe to call while a Send is running.
func (s *Session) History() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]message.Message(nil), s.history...)
}

// MaxResults returns the number of pages requested per search.
func (s *Session) MaxResults() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.agent.MaxResults()
}

// Turns returns the number of completed turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.turns
}

// SetMaxResults changes the results per search. It is only allowed before
// the first Send.
func (s *Session) SetMaxResults(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("engine: session %s: %w", s.id, ErrSessionStarted)
	}
	if n < 1 || n > MaxResultsLimit {
		return fmt.Errorf("engine: session %s: max results %d out of range [1, %d]", s.id, n, MaxResultsLimit)
	}

	return s.agent.SetMaxResults(n)
}

// Send runs one user turn and returns the answer with its sources. Only one
// Send may be active per session.
func (s *Session) Send(ctx context.Context, text string) (research.Answer, error) {
	if err := s.acquire(); err != nil {
		return research.Answer{}, err
	}
	defer s.release()

	s.publish(EventAgentStart, nil)
	s.log.InfoContext(ctx, "turn started", "session", s.id)

	answer, err := s.agent.Send(ctx, text)
	s.snapshot()
	if err != nil {
		s.log.ErrorContext(ctx, "turn failed", "session", s.id, "error", err)
		s.publish(EventError, err)
		s.publish(EventAgentEnd, nil)
		return research.Answer{}, err
	}

	s.mu.Lock()
	s.turns++
	s.mu.Unlock()

	s.publish(EventAgentEnd, answer)

	return answer, nil
}

func (s *Session) snapshot() {
	msgs := s.agent.Chat().Messages()

	s.mu.Lock()
	s.history = msgs
	s.mu.Unlock()
}

func (s *Session) observe(e research.Event) {
	s.publish(EventProgress, e)
}

func (s *Session) publish(kind EventKind, data any) {
	s.events.Publish(Event{
		Kind:      kind,
		SessionID: s.id,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("engine: session %s: %w", s.id, ErrSessionBusy)
	}
	s.active = true
	s.started = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}
