package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
)

// EventsHandler serves the archived event log.
type EventsHandler struct {
	archive *events.Archive
	log     zerolog.Logger
}

// NewEventsHandler creates a new events log handler.
func NewEventsHandler(archive *events.Archive, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		archive: archive,
		log:     log.With().Str("handler", "events").Logger(),
	}
}

// HandleRecent handles GET /api/events.
// Query parameters: limit (default 100, max 500) and type (one event
// type; empty returns everything).
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}

	eventType := events.EventType(r.URL.Query().Get("type"))
	if eventType != "" && !knownEventType(eventType) {
		http.Error(w, "unknown event type", http.StatusBadRequest)
		return
	}

	recent, err := h.archive.Recent(eventType, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read event log")
		http.Error(w, "Failed to read event log", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"events": recent,
			"count":  len(recent),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func knownEventType(eventType events.EventType) bool {
	for _, t := range events.AllTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
