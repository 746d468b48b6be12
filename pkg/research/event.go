package research

// State is the position of a turn in the answer loop.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingFirstResponse State = "awaiting_first_response"
	StateSearching             State = "searching"
	StateSummarizing           State = "summarizing"
	StateAwaitingFinalResponse State = "awaiting_final_response"
	StateDone                  State = "done"
)

// EventKind identifies a progress notification.
type EventKind string

const (
	EventStateChanged   EventKind = "state_changed"
	EventSearchStart    EventKind = "search_start"
	EventPageSummarized EventKind = "page_summarized"
	EventSearchEnd      EventKind = "search_end"
)

// Event reports turn progress to a frontend. Only the fields relevant to the
// kind are set. Skipped duplicate pages never produce an event.
type Event struct {
	Kind  EventKind `json:"kind"`
	State State     `json:"state,omitempty"`
	Query string    `json:"query,omitempty"`
	Title string    `json:"title,omitempty"`
	URL   string    `json:"url,omitempty"`
	Count int       `json:"count,omitempty"`
}

// Observer receives progress events synchronously on the turn's goroutine.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}
