package sinks

import (
	"context"
	"sync"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

// MemorySink records every routed sync and validation event so tests can
// assert on what the router delivered. Events are deep-copied on write;
// the router reuses target slices between publishes.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

// NewMemorySink constructs an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{events: make([]logging.Event, 0)}
}

// Write appends a detached copy of the event.
func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, detachEvent(event))
	return nil
}

// Events returns a snapshot of everything written so far.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// Reset discards recorded events between test cases.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

// Close implements logging.Sink; there is nothing to flush.
func (s *MemorySink) Close(context.Context) error {
	return nil
}

func detachEvent(event logging.Event) logging.Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}
