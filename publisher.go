package match

import (
	"sync"

	"github.com/tickcore/matching-engine/protocol"
)

// EventPublisher is the engine's event sink.
//
// IMPORTANT: Publish is called from the engine's command loop and must not
// block. Implementations that fan out to slow consumers have to buffer or
// drop on their own side.
type EventPublisher interface {
	Publish(...protocol.Event)
}

// MemoryPublisher stores events in memory, useful for testing.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []protocol.Event
}

// NewMemoryPublisher creates a new MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		events: make([]protocol.Event, 0),
	}
}

// Publish appends events to the in-memory slice.
func (m *MemoryPublisher) Publish(events ...protocol.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// Count returns the number of events stored.
func (m *MemoryPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Get returns the event at the specified index.
func (m *MemoryPublisher) Get(index int) protocol.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.events[index]
}

// Events returns a copy of all events stored.
func (m *MemoryPublisher) Events() []protocol.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]protocol.Event, len(m.events))
	copy(events, m.events)
	return events
}

// OfKind returns all stored events of one kind, in publish order.
func (m *MemoryPublisher) OfKind(kind protocol.EventKind) []protocol.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []protocol.Event
	for _, ev := range m.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

// DiscardPublisher drops all events, useful for benchmarking.
type DiscardPublisher struct {
}

// NewDiscardPublisher creates a new DiscardPublisher.
func NewDiscardPublisher() *DiscardPublisher {
	return &DiscardPublisher{}
}

// Publish does nothing.
func (p *DiscardPublisher) Publish(events ...protocol.Event) {

}
