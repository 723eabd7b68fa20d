package sinks

import (
	"context"
	"sync"

	"virtual-space/server/logging"
)

// MemorySink retains events in arrival order so tests can assert on the
// stream without standing up a real sink.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, copyEvent(event))
	return nil
}

func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logging.Event(nil), s.events...)
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

// copyEvent detaches the stored event from any maps or slices the caller may
// keep mutating after Write returns.
func copyEvent(event logging.Event) logging.Event {
	copied := event
	if len(event.Targets) > 0 {
		copied.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		extra := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			extra[k] = v
		}
		copied.Extra = extra
	}
	return copied
}
