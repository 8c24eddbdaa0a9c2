package events

import (
	"sync"
	"time"
)

// Event names the kind of change being broadcast.
type Event string

const (
	AuthorAdded    Event = "author_added"
	AuthorUpdated  Event = "author_updated"
	AuthorRemoved  Event = "author_removed"
	SeriesUpdated  Event = "series_updated"
	ItemsUpdated   Event = "items_updated"
	ItemUpdated    Event = "item_updated"
	LibraryUpdated Event = "library_updated"
	CardEdit       Event = "bookshelf_card_edit"
	CardSelect     Event = "bookshelf_card_select"
)

// Message is the frame written to clients.
type Message struct {
	Event     Event `json:"event"`
	Data      any   `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Emitter broadcasts events to whoever is listening.
type Emitter interface {
	Emit(event Event, data any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event, any) {}

// Recorder keeps emitted events in order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Emit(event Event, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Event: event, Data: data, Timestamp: time.Now().UnixMilli()})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.Event
	}
	return out
}

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
