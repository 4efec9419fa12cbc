package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tejasmk/doorbell/internal/wire"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024

	// Messages replayed to a connection joining a room
	replayLimit = 50

	// Per-connection send rate: sustained and burst
	sendRate  = 5
	sendBurst = 10
)

// Client represents a single websocket connection. Unlike a room
// participant it has no fixed room: it accumulates rooms through join
// frames, one for a visitor, all of them for the admin console.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	addr string

	// Buffered channel of outbound frames
	send chan []byte

	// joined is the set of rooms this connection receives; owned by the
	// hub loop
	joined map[string]bool

	// closed marks the send channel closed; owned by the hub loop
	closed bool

	// limiter throttles inbound messages from this connection
	limiter *rate.Limiter
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		addr:    conn.RemoteAddr().String(),
		send:    make(chan []byte, 256),
		joined:  make(map[string]bool),
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
	}
}

// trySend queues a frame without blocking. False means the buffer is
// full and the connection should be dropped.
func (c *Client) trySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump pumps frames from the connection into the hub.
// Runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("addr", c.addr).Msg("[relay] read error")
			}
			break
		}

		ev, err := wire.Decode(raw)
		if err != nil {
			// Undecodable frames are dropped, never fatal to the connection.
			log.Debug().Err(err).Str("addr", c.addr).Msg("[relay] dropping undecodable frame")
			continue
		}

		switch ev.Type {
		case wire.TypeJoin:
			c.hub.join <- joinRequest{client: c, roomID: ev.Join.Room()}

		case wire.TypeMsg:
			if !c.limiter.Allow() {
				log.Warn().Str("addr", c.addr).Msg("[relay] rate limit exceeded, frame dropped")
				continue
			}
			msg := ev.Message.Canonical()
			if msg.RoomID == "" || msg.Text == "" {
				continue
			}
			if msg.SentAt.IsZero() {
				msg.SentAt = time.Now().UTC()
			}
			c.hub.broadcast <- broadcastRequest{msg: msg, sender: c}
		}
	}
}

// WritePump pumps frames from the hub to the connection.
// Runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

			// Drain any queued frames as separate websocket frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
