package wire

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tejasmk/doorbell/internal/models"
)

// ErrUnknownShape reports a frame that matched none of the known
// canonical or legacy shapes. Consumers drop the frame (at most a debug
// log); a malformed frame must never take the connection down.
var ErrUnknownShape = errors.New("wire: unknown frame shape")

// Event is the normalized form every inbound frame is reduced to at the
// connection boundary. Exactly one of Join/Message is meaningful,
// selected by Type.
type Event struct {
	Type    string
	Join    JoinPayload
	Message Message
}

// Message mirrors models.Message but with the decode-only legacy
// aliases attached. Use Canonical to convert.
type Message struct {
	ID     string    `json:"id"`
	RoomID string    `json:"room_id"`
	Text   string    `json:"text"`
	Sender string    `json:"sender"`
	SentAt time.Time `json:"sent_at"`

	// Legacy aliases, decoded only.
	LegacyRoom string          `json:"roomId,omitempty"`
	LegacyBody json.RawMessage `json:"msg,omitempty"`
	LegacyData json.RawMessage `json:"data,omitempty"`
}

// Canonical strips the legacy aliases, leaving the domain message.
func (m Message) Canonical() models.Message {
	return models.Message{
		ID:     m.ID,
		RoomID: m.RoomID,
		Text:   m.Text,
		Sender: m.Sender,
		SentAt: m.SentAt,
	}
}

// Decode normalizes a single inbound frame. It accepts, in order of
// preference:
//
//  1. the canonical typed envelope,
//  2. a legacy admin event {"msg": <room>, "data": <string|{text}|{msg}>},
//  3. a legacy send {"roomId": ..., "msg"|"text": ...} or a bare
//     {"ticketId": ...} join,
//  4. a bare JSON string (text only, no room).
//
// Frames matching none of these return ErrUnknownShape.
func Decode(raw []byte) (Event, error) {
	// Bare string frame: text with no addressing at all.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Event{Type: TypeMsg, Message: Message{Text: s}}, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, ErrUnknownShape
	}

	switch env.Type {
	case TypeJoin:
		var join JoinPayload
		if err := json.Unmarshal(env.Payload, &join); err != nil || join.Room() == "" {
			return Event{}, ErrUnknownShape
		}
		return Event{Type: TypeJoin, Join: join}, nil

	case TypeMsg:
		msg, err := decodeMessageBody(env.Payload)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: TypeMsg, Message: msg}, nil

	case "":
		// No envelope: one of the legacy single-object shapes.
		return decodeLegacy(raw)
	}

	return Event{}, ErrUnknownShape
}

// decodeLegacy handles the frames the first-generation clients emitted
// without an envelope.
func decodeLegacy(raw []byte) (Event, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, ErrUnknownShape
	}

	// Legacy join: {"ticketId": "a@x.com", "msg": "..."}; the msg field
	// there was a throwaway greeting, not a message body.
	var probe struct {
		TicketID string `json:"ticketId"`
	}
	if json.Unmarshal(raw, &probe) == nil && probe.TicketID != "" {
		return Event{Type: TypeJoin, Join: JoinPayload{TicketID: probe.TicketID}}, nil
	}

	// Legacy admin event: room rides in "msg", body in "data".
	if len(msg.LegacyData) > 0 {
		var room string
		if err := json.Unmarshal(msg.LegacyBody, &room); err == nil {
			msg.RoomID = room
		}
		msg.Text = unwrapBody(msg.LegacyData)
		if msg.Text == "" && msg.RoomID == "" {
			return Event{}, ErrUnknownShape
		}
		return Event{Type: TypeMsg, Message: msg}, nil
	}

	// Legacy send: {"roomId": ..., "msg"|"text": ...}.
	if msg.RoomID == "" {
		msg.RoomID = msg.LegacyRoom
	}
	if msg.Text == "" && len(msg.LegacyBody) > 0 {
		msg.Text = unwrapBody(msg.LegacyBody)
	}
	if msg.Text == "" && msg.RoomID == "" {
		return Event{}, ErrUnknownShape
	}
	return Event{Type: TypeMsg, Message: msg}, nil
}

// decodeMessageBody decodes a canonical msg payload, tolerating the
// legacy "msg" body field in place of "text".
func decodeMessageBody(raw json.RawMessage) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		// A canonical envelope may still carry a bare-string payload.
		var s string
		if err2 := json.Unmarshal(raw, &s); err2 == nil {
			return Message{Text: s}, nil
		}
		return Message{}, ErrUnknownShape
	}
	if msg.Text == "" && len(msg.LegacyBody) > 0 {
		msg.Text = unwrapBody(msg.LegacyBody)
	}
	if msg.RoomID == "" {
		msg.RoomID = msg.LegacyRoom
	}
	if msg.Text == "" && msg.RoomID == "" {
		return Message{}, ErrUnknownShape
	}
	return msg, nil
}

// unwrapBody extracts message text from the observed body encodings:
// a bare string, {"text": ...}, or {"msg": ...} nested one level.
func unwrapBody(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var nested struct {
		Text string `json:"text"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		if nested.Text != "" {
			return nested.Text
		}
		return nested.Msg
	}
	return ""
}
