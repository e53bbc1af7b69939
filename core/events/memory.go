package events

import "sync"

// MemoryEmitter retains emitted events in order. The daemon uses it as the
// notification sink behind the RPC event log; tests use it to assert on
// emission order.
type MemoryEmitter struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

// NewMemoryEmitter constructs an emitter that keeps at most limit events,
// discarding the oldest once the cap is reached. A non-positive limit keeps
// everything.
func NewMemoryEmitter(limit int) *MemoryEmitter {
	return &MemoryEmitter{limit: limit}
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	if m.limit > 0 && len(m.events) > m.limit {
		m.events = m.events[len(m.events)-m.limit:]
	}
}

// Events returns a snapshot of the retained events.
func (m *MemoryEmitter) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
