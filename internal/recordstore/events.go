package recordstore

import (
	"sync/atomic"

	"github.com/hmans/speako/internal/record"
)

// EventType represents the type of change that occurred in a collection.
type EventType int

const (
	// EventCreated indicates a record was inserted.
	EventCreated EventType = iota
	// EventDeleted indicates a record was removed.
	EventDeleted
	// EventReloaded indicates a collection was replaced wholesale.
	EventReloaded
)

// String returns a human-readable representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	case EventReloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}

// Event represents a change to a collection.
type Event struct {
	Type     EventType
	TypeName string
	Record   record.Record // nil for Reloaded events
}

// subscription represents a subscriber to store events.
type subscription struct {
	ch chan []Event
	id uint64
}

// Subscribe creates a new subscription to store change events.
// Returns the event channel and an unsubscribe function.
// Each mutation delivers one batch of events.
func (s *Store) Subscribe() (<-chan []Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := atomic.AddUint64(&s.nextSubID, 1)
	ch := make(chan []Event, 16)

	s.subscribers[id] = &subscription{ch: ch, id: id}

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			close(ch)
			delete(s.subscribers, id)
		}
	}

	return ch, unsubscribe
}

// fanOut sends events to all subscribers (non-blocking).
// Slow subscribers will have events dropped rather than blocking mutations.
func (s *Store) fanOut(events []Event) {
	if len(events) == 0 {
		return
	}

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subscribers {
		select {
		case sub.ch <- events:
		default:
		}
	}
}
