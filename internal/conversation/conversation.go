// Package conversation holds the view-model for a chat box: the
// ordered message history of the active room, optimistic sends, and the
// snap-to-bottom scroll policy. Rendering lives in the consoles; this
// package is only state.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/tejasmk/doorbell/internal/models"
)

// Sender is the slice of the messaging client a conversation needs:
// emit a message, get back the locally constructed copy for optimistic
// display.
type Sender interface {
	Send(roomID, text string) models.Message
}

// Conversation is the state behind one chat box. The visitor console
// has a single implicit room (their own email); the admin console
// points one Conversation at whichever room is selected.
type Conversation struct {
	sender Sender

	mu            sync.Mutex
	roomID        string
	me            string
	msgs          []models.Message
	scrollPending bool
}

// New creates an empty conversation with no room and no identity.
func New(sender Sender) *Conversation {
	return &Conversation{sender: sender}
}

// SetIdentity records the local identity used for Submit validation.
func (c *Conversation) SetIdentity(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.me = email
}

// Open points the conversation at a room without touching the history
// already on screen. The visitor console uses it on sign-in: the seeded
// welcome stays, the room becomes the visitor's own email.
func (c *Conversation) Open(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// SetRoom switches the active room and replaces the visible history
// (the admin console swaps in the selected roster entry's history).
func (c *Conversation) SetRoom(roomID string, history []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.msgs = append([]models.Message(nil), history...)
	c.scrollPending = true
}

// Room returns the active room id, empty when none.
func (c *Conversation) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// SeedWelcome prepends the bot greeting shown before any real traffic.
func (c *Conversation) SeedWelcome(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, models.Message{
		ID:     "welcome",
		Text:   text,
		Sender: models.SenderBot,
		SentAt: time.Now().UTC(),
	})
	c.scrollPending = true
}

// Submit validates and sends text. Empty or whitespace-only input, a
// missing identity, or a missing room are all silent no-ops: the
// history is untouched and the transport is never called. Otherwise the
// locally constructed message is appended immediately, before any
// network outcome is known.
func (c *Conversation) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	room, me := c.roomID, c.me
	c.mu.Unlock()
	if room == "" || me == "" {
		return false
	}

	msg := c.sender.Send(room, text)

	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.scrollPending = true
	c.mu.Unlock()
	return true
}

// Receive appends an inbound message if it is addressed to the active
// room. Messages for other rooms leave this view untouched (the admin
// roster still accumulates them per room).
func (c *Conversation) Receive(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomID == "" || msg.RoomID != c.roomID {
		return false
	}
	c.msgs = append(c.msgs, msg)
	c.scrollPending = true
	return true
}

// Messages returns a copy of the visible history, in insertion order.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.msgs...)
}

// Len reports the visible history length.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// ConsumeScroll reports whether the view should snap to the newest
// message, clearing the flag. Every history mutation arms it: the
// policy is always-snap-to-bottom, with no mid-read preservation.
func (c *Conversation) ConsumeScroll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.scrollPending
	c.scrollPending = false
	return pending
}

// IsMine reports whether msg was authored by the local identity.
func (c *Conversation) IsMine(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.me != "" && msg.Sender == c.me
}
