// Package wire defines the canonical frame format spoken between the
// chat clients and the relay, plus decoding for the legacy frame shapes
// the first generation of clients emitted.
//
// Canonical frames are a typed envelope:
//
//	{"type":"join","payload":{"room_id":"a@x.com"}}
//	{"type":"msg","payload":{"id":"...","room_id":"a@x.com","text":"hi","sender":"a@x.com","sent_at":"..."}}
//
// The message body field is "text"; "msg" is accepted on decode for
// compatibility but never emitted.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/tejasmk/doorbell/internal/models"
)

// Frame types.
const (
	TypeJoin = "join"
	TypeMsg  = "msg"
)

// Envelope is the canonical outer frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinPayload requests delivery for one room.
type JoinPayload struct {
	RoomID string `json:"room_id"`

	// TicketID is the legacy spelling of RoomID. Decoded only.
	TicketID string `json:"ticketId,omitempty"`
}

// Room returns the addressed room regardless of which spelling was used.
func (p JoinPayload) Room() string {
	if p.RoomID != "" {
		return p.RoomID
	}
	return p.TicketID
}

// EncodeJoin builds a canonical join frame for roomID.
func EncodeJoin(roomID string) ([]byte, error) {
	payload, err := json.Marshal(JoinPayload{RoomID: roomID})
	if err != nil {
		return nil, fmt.Errorf("marshal join payload: %w", err)
	}
	return json.Marshal(Envelope{Type: TypeJoin, Payload: payload})
}

// EncodeMessage builds a canonical message frame.
func EncodeMessage(msg models.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message payload: %w", err)
	}
	return json.Marshal(Envelope{Type: TypeMsg, Payload: payload})
}
