// Package httpapi exposes research sessions over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/engine"
	"github.com/germanamz/searchsmart/pkg/research"
)

// Conversation is the session surface the API needs.
type Conversation interface {
	ID() string
	Send(ctx context.Context, text string) (research.Answer, error)
	History() []message.Message
	MaxResults() int
	SetMaxResults(n int) error
	Turns() int
}

// Backend creates and looks up conversations.
type Backend interface {
	NewConversation(maxResults int) (Conversation, error)
	Conversation(id string) (Conversation, bool)
	CloseConversation(id string) error
	Events() *engine.EventBus
}

// EngineBackend serves conversations from an engine.
type EngineBackend struct {
	Engine *engine.Engine
}

// NewConversation implements Backend.
func (b EngineBackend) NewConversation(maxResults int) (Conversation, error) {
	s, err := b.Engine.NewSession(engine.SessionOptions{MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Conversation implements Backend.
func (b EngineBackend) Conversation(id string) (Conversation, bool) {
	s, ok := b.Engine.Session(id)
	if !ok {
		return nil, false
	}
	return s, true
}

// CloseConversation implements Backend.
func (b EngineBackend) CloseConversation(id string) error {
	return b.Engine.CloseSession(id)
}

// Events implements Backend.
func (b EngineBackend) Events() *engine.EventBus {
	return b.Engine.Events()
}

// Server handles the HTTP API.
type Server struct {
	backend Backend
	log     *slog.Logger
}

// NewServer creates a Server. A nil logger discards request logs.
func NewServer(backend Backend, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{backend: backend, log: log}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Post("/sessions", s.createSession)
	r.Get("/sessions/{id}", s.getSession)
	r.Delete("/sessions/{id}", s.deleteSession)
	r.Put("/sessions/{id}/settings", s.updateSettings)
	r.Get("/sessions/{id}/messages", s.listMessages)
	r.Post("/sessions/{id}/messages", s.sendMessage)
	r.Get("/sessions/{id}/events", s.streamEvents)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, value any) {
	writeJSONStatus(w, value, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSONStatus(w, errorResponse{Error: msg}, statusCode)
}

// decode reads an optional JSON body into dst.
func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	ID         string `json:"id"`
	MaxResults int    `json:"max_results"`
	Turns      int    `json:"turns"`
}

func toSessionResponse(c Conversation) sessionResponse {
	return sessionResponse{ID: c.ID(), MaxResults: c.MaxResults(), Turns: c.Turns()}
}

type createSessionRequest struct {
	MaxResults int `json:"max_results"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	c, err := s.backend.NewConversation(req.MaxResults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSONStatus(w, toSessionResponse(c), http.StatusCreated)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Conversation, bool) {
	id := chi.URLParam(r, "id")
	c, ok := s.backend.Conversation(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return c, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, toSessionResponse(c))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.CloseConversation(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsRequest struct {
	MaxResults int `json:"max_results"`
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := c.SetMaxResults(req.MaxResults); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrSessionStarted) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, toSessionResponse(c))
}

type toolCallView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type messageView struct {
	Role       string         `json:"role"`
	Text       string         `json:"text,omitempty"`
	ToolCalls  []toolCallView `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

func toMessageViews(msgs []message.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{Role: m.Role.String(), Text: m.TextContent()}
		for _, tc := range m.ToolCalls() {
			v.ToolCalls = append(v.ToolCalls, toolCallView{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		for _, tr := range m.ToolResults() {
			v.ToolCallID = tr.ToolCallID
			v.Text = tr.Content
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, toMessageViews(c.History()))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	answer, err := c.Send(r.Context(), text)
	if err != nil {
		s.log.ErrorContext(r.Context(), "send failed", "session", c.ID(), "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	if answer.Sources == nil {
		answer.Sources = []research.Source{}
	}
	writeJSON(w, answer)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, research.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, research.ErrMalformedToolArguments), errors.Is(err, research.ErrUnknownTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// eventBuffer is the subscription buffer of one event stream.
const eventBuffer = 64

type eventView struct {
	Kind      engine.EventKind `json:"kind"`
	SessionID string           `json:"session_id"`
	Timestamp time.Time        `json:"timestamp"`
	Progress  *research.Event  `json:"progress,omitempty"`
	Answer    *research.Answer `json:"answer,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func toEventView(e engine.Event) eventView {
	v := eventView{Kind: e.Kind, SessionID: e.SessionID, Timestamp: e.Timestamp}
	switch d := e.Data.(type) {
	case research.Event:
		v.Progress = &d
	case research.Answer:
		if d.Sources == nil {
			d.Sources = []research.Source{}
		}
		v.Answer = &d
	case error:
		v.Error = d.Error()
	}
	return v
}

// streamEvents upgrades to a websocket and writes the session's events until
// the client goes away or the session is closed.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := c.ID()

	// Subscribe before the handshake completes so no event published after
	// the client connects is missed.
	events := s.backend.Events()
	sub := events.Subscribe(eventBuffer)
	defer events.Unsubscribe(sub)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept failed", "session", id, "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// The stream is write-only; CloseRead handles pings and notices the peer
	// going away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.SessionID != id {
				continue
			}
			if err := wsjson.Write(ctx, conn, toEventView(ev)); err != nil {
				s.log.DebugContext(ctx, "event stream closed", "session", id, "error", err)
				return
			}
			if ev.Kind == engine.EventSessionEnd {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
		}
	}
}
