package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/opspulse/opspulse/internal/events"
)

// EventsHandler streams bus events to dashboard clients over WebSocket
type EventsHandler struct {
	upgrader websocket.Upgrader
	bus      *events.Bus
}

// NewEventsHandler creates a new events WebSocket handler
func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for internal communication
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		bus: bus,
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventsHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/events", h.HandleWebSocket)
}

// HandleWebSocket subscribes the client to the event bus and forwards every
// event as a JSON text message until the client goes away.
func (h *EventsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	log.Printf("Event stream client connected from %s", r.RemoteAddr)

	ch, cancel := h.bus.Subscribe()
	defer func() {
		cancel()
		conn.Close()
		log.Printf("Event stream client disconnected")
	}()

	// Clients never send anything meaningful; the read loop only notices
	// when the peer closes the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket read error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case evt := <-ch:
			data, err := json.Marshal(evt)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
