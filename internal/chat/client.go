// Package chat implements the messaging client: one long-lived
// websocket connection to the relay, room joins, fire-and-forget sends
// and a subscription for inbound messages.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tejasmk/doorbell/internal/models"
	"github.com/tejasmk/doorbell/internal/wire"
)

// maxPendingEchoes bounds the set of correlation ids retained for echo
// suppression when the relay never echoes them back.
const maxPendingEchoes = 256

// Client is the messaging client. It is an explicitly constructed,
// injected resource: the composition root creates one per process,
// calls Connect once, and Close on shutdown. There is no custom
// reconnect, heartbeat, or backoff; transport failures end the inbound
// stream and sends degrade to logged no-ops.
type Client struct {
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	sender  string
	joined  map[string]bool
	pending map[string]bool
	order   []string
	subs    map[int]func(models.Message)
	nextSub int
}

// New creates a disconnected client.
func New() *Client {
	return &Client{
		dialer:  websocket.DefaultDialer,
		joined:  make(map[string]bool),
		pending: make(map[string]bool),
		subs:    make(map[int]func(models.Message)),
	}
}

// SetSender sets the identity stamped on outbound messages. The
// identity hook calls this together with Join when sign-in completes.
func (c *Client) SetSender(email string) {
	c.mu.Lock()
	c.sender = email
	c.mu.Unlock()
}

// Connect dials the relay and starts the inbound read loop. Rooms
// joined before connecting are flushed to the relay immediately after
// the dial succeeds.
func (c *Client) Connect(ctx context.Context, endpoint string) error {
	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	rooms := make([]string, 0, len(c.joined))
	for room := range c.joined {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	for _, room := range rooms {
		c.sendJoin(room)
	}

	go c.readLoop(conn)
	return nil
}

// Join idempotently requests delivery for roomID. Calling it twice with
// the same room sends at most one extra frame to the relay and never
// causes double delivery locally; joins issued while disconnected are
// replayed on Connect.
func (c *Client) Join(roomID string) {
	if roomID == "" {
		return
	}

	c.mu.Lock()
	already := c.joined[roomID]
	c.joined[roomID] = true
	connected := c.conn != nil
	c.mu.Unlock()

	if already {
		return
	}
	if connected {
		c.sendJoin(roomID)
	}
}

func (c *Client) sendJoin(roomID string) {
	frame, err := wire.EncodeJoin(roomID)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("[chat] encode join")
		return
	}
	if err := c.write(frame); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("[chat] join not delivered")
	}
}

// Send emits text to roomID and returns the locally constructed message
// for optimistic display. Delivery is fire-and-forget: no ack is
// awaited, no retry happens, and a network failure is only logged; the
// returned message is appended to local history regardless.
func (c *Client) Send(roomID, text string) models.Message {
	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()

	msg := models.Message{
		ID:     uuid.New().String(),
		RoomID: roomID,
		Text:   text,
		Sender: sender,
		SentAt: time.Now().UTC(),
	}
	c.trackEcho(msg.ID)

	frame, err := wire.EncodeMessage(msg)
	if err != nil {
		log.Error().Err(err).Msg("[chat] encode message")
		return msg
	}
	if err := c.write(frame); err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("[chat] message not delivered")
	}
	return msg
}

// Subscribe registers a callback invoked once per inbound message. The
// returned func removes the subscription; callers must invoke it on
// disposal so handlers don't accumulate across re-subscriptions.
func (c *Client) Subscribe(fn func(models.Message)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close tears down the connection. Safe to call when never connected.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

func (c *Client) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// readLoop pumps inbound frames until the connection dies, normalizing
// each through the wire decoder and fanning out to subscribers.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("[chat] connection lost")
			}
			return
		}

		ev, err := wire.Decode(raw)
		if err != nil {
			// Malformed frames are dropped, never fatal.
			log.Debug().Err(err).Msg("[chat] dropping undecodable frame")
			continue
		}
		if ev.Type != wire.TypeMsg {
			continue
		}

		msg := ev.Message.Canonical()
		if msg.SentAt.IsZero() {
			msg.SentAt = time.Now().UTC()
		}
		if c.suppressEcho(msg.ID) {
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg models.Message) {
	c.mu.Lock()
	fns := make([]func(models.Message), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// trackEcho remembers a correlation id we emitted so the relay echoing
// our own message back doesn't show up twice.
func (c *Client) trackEcho(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = true
	c.order = append(c.order, id)
	if len(c.order) > maxPendingEchoes {
		delete(c.pending, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *Client) suppressEcho(id string) bool {
	if id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending[id] {
		return false
	}
	delete(c.pending, id)
	return true
}
