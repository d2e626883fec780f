// Package events provides the in-process event bus used to fan out
// simulation progress and maintenance notifications to subscribers
// (SSE stream, log sinks).
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event
type EventType string

const (
	// SweepStarted is published when a flux sweep begins
	SweepStarted EventType = "sweep_started"
	// SweepProgress is published periodically while a sweep runs
	SweepProgress EventType = "sweep_progress"
	// SweepCompleted is published when a sweep finishes, including sweeps
	// that recorded failed points below the abort threshold
	SweepCompleted EventType = "sweep_completed"
	// SweepFailed is published when a sweep aborts
	SweepFailed EventType = "sweep_failed"
	// RunDeleted is published when a stored run is removed
	RunDeleted EventType = "run_deleted"
	// RunsPruned is published after scheduled retention cleanup
	RunsPruned EventType = "runs_pruned"
	// BackupCompleted is published after a successful backup upload
	BackupCompleted EventType = "backup_completed"
)

// Event is a single published event with its payload
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// Handler processes a published event. Handlers must not block; slow
// consumers buffer on their own channels (see the SSE stream).
type Handler func(*Event)

// Bus is a synchronous publish/subscribe event bus. Subscriptions are
// expected at wire-up time; Publish may be called from any goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to all handlers registered for its type.
// Delivery is synchronous and in subscription order.
func (b *Bus) Publish(data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}

	b.log.Debug().Str("event_type", string(event.Type)).Int("handlers", len(handlers)).Msg("Event published")
}
