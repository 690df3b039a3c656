package analytics

import (
	"context"
	"sync"
)

// Mock collects lookup events in memory for tests.
type Mock struct {
	mu     sync.Mutex
	Events []LookupEvent
	Err    error
}

// RecordLookup implements Service.
func (m *Mock) RecordLookup(ctx context.Context, e LookupEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	m.Events = append(m.Events, e)
	m.mu.Unlock()
	return nil
}

// Recorded returns a snapshot of the events seen so far.
func (m *Mock) Recorded() []LookupEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LookupEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
