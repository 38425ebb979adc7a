package handlers

import (
	"sync"

	"barrier-router/internal/request"
	"barrier-router/internal/session"
)

// DefaultFeedCapacity is the number of events kept per session
const DefaultFeedCapacity = 256

// Event is a numbered mutation as delivered to polling clients
type Event struct {
	Seq      int64            `json:"seq"`
	Mutation session.Mutation `json:"mutation"`
	Error    *ErrorDetail     `json:"error,omitempty"`
}

// EventFeed is a Presenter that buffers the most recent mutations of each
// session so clients can poll for changes made by asynchronous solves
type EventFeed struct {
	mu       sync.Mutex
	capacity int
	next     map[string]int64
	events   map[string][]Event
	sink     session.Presenter
}

// NewEventFeed creates a feed keeping capacity events per session. Every
// mutation is also forwarded to sink when it is not nil.
func NewEventFeed(capacity int, sink session.Presenter) *EventFeed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &EventFeed{
		capacity: capacity,
		next:     make(map[string]int64),
		events:   make(map[string][]Event),
		sink:     sink,
	}
}

func (f *EventFeed) Present(m session.Mutation) {
	ev := Event{Mutation: m}
	if m.Error != nil {
		ev.Error = errorDetail(m.Error)
	}

	f.mu.Lock()
	f.next[m.SessionID]++
	ev.Seq = f.next[m.SessionID]
	events := append(f.events[m.SessionID], ev)
	if len(events) > f.capacity {
		events = events[len(events)-f.capacity:]
	}
	f.events[m.SessionID] = events
	f.mu.Unlock()

	if f.sink != nil {
		f.sink.Present(m)
	}
}

// Since returns the buffered events of a session with Seq greater than after
func (f *EventFeed) Since(sessionID string, after int64) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Event{}
	for _, ev := range f.events[sessionID] {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out
}

// Last returns the sequence number of the most recent event of a session
func (f *EventFeed) Last(sessionID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next[sessionID]
}

// Drop forgets a session's events
func (f *EventFeed) Drop(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.next, sessionID)
	delete(f.events, sessionID)
}

// LastError returns the most recent error event of a session, if any
func (f *EventFeed) LastError(sessionID string) *request.RequestError {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events[sessionID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Mutation.Error != nil {
			return events[i].Mutation.Error
		}
	}
	return nil
}
