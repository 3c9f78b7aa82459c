// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"context"
	"sync"

	"github.com/commerce/backend/internal/domain/shared"
)

// RecordingEventHandler captures every event dispatched to it so tests
// can assert on the published lifecycle events.
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	recorded   []shared.DomainEvent
}

// NewRecordingEventHandler creates a handler subscribed to the given
// event types. No types means the handler receives all events.
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the subscribed event types
func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event
func (h *RecordingEventHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = append(h.recorded, evt)
	return nil
}

// Recorded returns a copy of all recorded events
func (h *RecordingEventHandler) Recorded() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.recorded))
	copy(out, h.recorded)
	return out
}

// RecordedTypes returns the event types in the order they were handled
func (h *RecordingEventHandler) RecordedTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.recorded))
	for i, evt := range h.recorded {
		types[i] = evt.EventType()
	}
	return types
}

// Reset clears the recorded events
func (h *RecordingEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = nil
}
