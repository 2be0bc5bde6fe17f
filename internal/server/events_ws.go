package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Xconmax245/Quantara/internal/events"
)

// EventsSocketHandler streams protocol events to clients over a
// websocket connection. Same filtering semantics as the SSE stream.
type EventsSocketHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsSocketHandler creates a new websocket events handler.
func NewEventsSocketHandler(eventBus *events.Bus, log zerolog.Logger) *EventsSocketHandler {
	return &EventsSocketHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests.
func (h *EventsSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	h.log.Info().
		Str("types_filter", r.URL.Query().Get("types")).
		Msg("Client connected to websocket event stream")

	eventChan, closed := subscribeFiltered(h.eventBus, allowedTypes, h.log)
	defer closed.Store(true)

	ctx := r.Context()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from websocket event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, closing")
				return
			}

		case <-heartbeat.C:
			if err := conn.Ping(ctx); err != nil {
				h.log.Debug().Err(err).Msg("Websocket ping failed, closing")
				return
			}
		}
	}
}
