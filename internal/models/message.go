package models

import "time"

// SenderBot is the reserved sender for system-generated messages,
// such as the welcome message seeded into a visitor's conversation.
const SenderBot = "bot"

// Message is a single chat message addressed to a room.
// Messages are immutable once created and histories are append-only:
// display order is insertion order, never a re-sort by timestamp.
type Message struct {
	// ID is a client-generated correlation id (UUID). It lets a client
	// recognise an echo of its own message and suppress the duplicate.
	ID string `json:"id"`

	// RoomID is the room this message is addressed to. Rooms are keyed
	// by the visitor's email, one room per visitor.
	RoomID string `json:"room_id"`

	// Text is the message body.
	Text string `json:"text"`

	// Sender is the author's identity (email), or SenderBot.
	Sender string `json:"sender"`

	// SentAt is when the message was composed.
	SentAt time.Time `json:"sent_at"`
}

// DisplayTime formats the send time for rendering next to the message.
func (m Message) DisplayTime() string {
	return m.SentAt.Local().Format("15:04:05")
}
