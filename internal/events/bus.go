// Package events provides the typed protocol event bus.
package events

import (
	"sync"
	"time"

	"github.com/Xconmax245/Quantara/internal/utils"
	"github.com/rs/zerolog"
)

// Event represents a system event with its payload.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives published events. Handlers run synchronously on the
// emitting goroutine; a panicking handler is isolated and never blocks
// delivery to the remaining subscribers.
type Handler func(event *Event)

// Bus is an in-process publish/subscribe bus with per-type and global
// subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	global   []Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for a single event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, handler)
}

// Emit publishes an event to type-specific subscribers first, then to
// global subscribers, and returns the published event.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) *Event {
	event := &Event{
		ID:        utils.GenerateID("EVT"),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	typed := make([]Handler, len(b.handlers[eventType]))
	copy(typed, b.handlers[eventType])
	global := make([]Handler, len(b.global))
	copy(global, b.global)
	b.mu.RUnlock()

	for _, handler := range typed {
		b.deliver(handler, event)
	}
	for _, handler := range global {
		b.deliver(handler, event)
	}

	return event
}

// deliver invokes one handler, converting a panic into a log entry so a
// failing subscriber cannot take down the emitter or starve the rest.
func (b *Bus) deliver(handler Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event_type", string(event.Type)).
				Str("event_id", event.ID).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}
