// Package relay implements the real-time relay server: the websocket
// endpoint the consoles connect to, the room registry that routes
// messages between them, the visitor directory, and optional history
// persistence.
package relay

import (
	"github.com/rs/zerolog/log"

	"github.com/tejasmk/doorbell/internal/models"
	"github.com/tejasmk/doorbell/internal/wire"
)

// Hub maintains the set of active connections and routes messages to
// every connection joined to a room. One connection may be joined to
// many rooms (the admin console joins them all).
type Hub struct {
	// rooms maps roomID to the set of connections joined to it
	rooms map[string]map[*Client]bool

	// register requests from new connections
	register chan *Client

	// unregister requests from closing connections
	unregister chan *Client

	// join requests decoded from inbound frames
	join chan joinRequest

	// broadcast routes a message to every connection in its room
	broadcast chan broadcastRequest

	// registry records every identity that ever joined
	registry *VisitorRegistry

	// store persists history and serves replay on join; nil disables both
	store *Store
}

type joinRequest struct {
	client *Client
	roomID string
}

type broadcastRequest struct {
	msg    models.Message
	sender *Client
}

// NewHub creates a hub. store may be nil for memory-only operation.
func NewHub(registry *VisitorRegistry, store *Store) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan broadcastRequest),
		registry:   registry,
		store:      store,
	}
}

// Run starts the hub's event loop. Call in a goroutine: go hub.Run().
// All room-map mutation happens on this loop, so no lock is needed.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			connectedClients.Inc()
			log.Info().Str("addr", client.addr).Msg("[relay] connection open")

		case client := <-h.unregister:
			h.dropClient(client)

		case req := <-h.join:
			h.joinRoom(req)

		case req := <-h.broadcast:
			h.broadcastToRoom(req)
		}
	}
}

// joinRoom adds the connection to the room's delivery set. Joins are
// idempotent: a repeat join from the same connection changes nothing,
// so a room joined twice still delivers each message once.
func (h *Hub) joinRoom(req joinRequest) {
	if req.roomID == "" {
		return
	}
	if h.rooms[req.roomID] == nil {
		h.rooms[req.roomID] = make(map[*Client]bool)
	}
	if h.rooms[req.roomID][req.client] {
		return
	}
	h.rooms[req.roomID][req.client] = true
	req.client.joined[req.roomID] = true
	joinsTotal.Inc()

	h.registry.Touch(req.roomID)
	log.Info().Str("room", req.roomID).Str("addr", req.client.addr).
		Int("members", len(h.rooms[req.roomID])).Msg("[relay] joined room")

	h.replay(req)
}

// replay sends the room's persisted tail to the joining connection, so
// a console opened later still sees recent context. Best effort: a
// failed load only logs.
func (h *Hub) replay(req joinRequest) {
	if h.store == nil {
		return
	}
	msgs, err := h.store.LoadRecent(req.roomID, replayLimit)
	if err != nil {
		log.Warn().Err(err).Str("room", req.roomID).Msg("[relay] history replay failed")
		return
	}
	for _, msg := range msgs {
		frame, err := wire.EncodeMessage(msg)
		if err != nil {
			continue
		}
		req.client.trySend(frame)
	}
}

// dropClient removes the connection from every room it joined and
// cleans up rooms left empty.
func (h *Hub) dropClient(client *Client) {
	for roomID := range client.joined {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.closeClient(client)
	log.Info().Str("addr", client.addr).Msg("[relay] connection closed")
}

// closeClient closes the outbound channel once. Only called from the
// hub loop.
func (h *Hub) closeClient(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.send)
	connectedClients.Dec()
}

// broadcastToRoom delivers a message to every connection in its room
// except the sender, and appends it to the persistent history.
func (h *Hub) broadcastToRoom(req broadcastRequest) {
	messagesTotal.Inc()

	if h.store != nil {
		if err := h.store.Append(req.msg); err != nil {
			log.Warn().Err(err).Str("room", req.msg.RoomID).Msg("[relay] persist failed")
		}
	}

	frame, err := wire.EncodeMessage(req.msg)
	if err != nil {
		log.Error().Err(err).Msg("[relay] encode broadcast")
		return
	}

	var slow []*Client
	sent := 0
	for client := range h.rooms[req.msg.RoomID] {
		// The sender already rendered the message optimistically.
		if client == req.sender {
			continue
		}
		if client.trySend(frame) {
			sent++
		} else {
			slow = append(slow, client)
		}
	}

	// Slow consumers are dropped rather than allowed to block the loop.
	for _, client := range slow {
		h.dropClient(client)
		log.Warn().Str("addr", client.addr).Msg("[relay] dropped slow connection")
	}
	log.Debug().Str("room", req.msg.RoomID).Int("delivered", sent).Msg("[relay] broadcast")
}
