package relay

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// upgrader upgrades HTTP connections to websocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow connections from any origin (CORS handled by middleware)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles websocket connections.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new websocket handler.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeWS handles websocket upgrade requests at /ws. Rooms are not in
// the URL; a connection declares them with join frames after the
// upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[relay] upgrade failed")
		return
	}

	client := NewClient(h.hub, conn)
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
