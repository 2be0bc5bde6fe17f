package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/utils"
)

// EventsStreamHandler streams protocol events to clients over
// Server-Sent Events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// The optional types query parameter is a comma-separated list of event
// types to forward; everything else is dropped.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	h.log.Info().
		Str("types_filter", r.URL.Query().Get("types")).
		Msg("Client connected to event stream")

	eventChan, closed := subscribeFiltered(h.eventBus, allowedTypes, h.log)
	defer closed.Store(true)

	done := r.Context().Done()

	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to protocol event stream",
	}))
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.log.Debug().
				Str("event_type", string(event.Type)).
				Msg("Sending event to client")

			eventJSON := h.encodeEvent(map[string]interface{}{
				"id":        event.ID,
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

			fmt.Fprintf(w, "data: %s\n\n", eventJSON)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// encodeEvent encodes an event map to JSON string.
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}

// parseTypesFilter parses a comma-separated type list into a lookup set.
// Returns nil when the filter is empty, meaning all types pass.
func parseTypesFilter(raw string) map[events.EventType]bool {
	names := utils.ParseCSV(raw)
	if len(names) == 0 {
		return nil
	}
	allowed := make(map[events.EventType]bool, len(names))
	for _, name := range names {
		allowed[events.EventType(name)] = true
	}
	return allowed
}

// subscribeFiltered registers a bus subscriber that forwards matching
// events into a buffered channel. The bus has no unsubscribe, so
// forwarding stops through the closed flag once the client disconnects;
// sends are non-blocking and drop when the channel is full.
func subscribeFiltered(bus *events.Bus, allowedTypes map[events.EventType]bool, log zerolog.Logger) (chan *events.Event, *atomic.Bool) {
	eventChan := make(chan *events.Event, 100)
	closed := &atomic.Bool{}

	bus.SubscribeAll(func(event *events.Event) {
		if closed.Load() {
			return
		}
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}
		select {
		case eventChan <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})

	return eventChan, closed
}
