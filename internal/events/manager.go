package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event to the bus and logs it
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := m.bus.Emit(eventType, module, data)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitTyped emits an event with typed data to the bus and logs it
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	m.Emit(eventType, module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}
