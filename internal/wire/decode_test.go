package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasmk/doorbell/internal/models"
)

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType string
		wantRoom string
		wantText string
		wantErr  bool
	}{
		{
			name:     "canonical message envelope",
			raw:      `{"type":"msg","payload":{"id":"m1","room_id":"a@x.com","text":"hi","sender":"a@x.com"}}`,
			wantType: TypeMsg,
			wantRoom: "a@x.com",
			wantText: "hi",
		},
		{
			name:     "canonical join envelope",
			raw:      `{"type":"join","payload":{"room_id":"a@x.com"}}`,
			wantType: TypeJoin,
			wantRoom: "a@x.com",
		},
		{
			name:     "canonical envelope with legacy msg body field",
			raw:      `{"type":"msg","payload":{"room_id":"a@x.com","msg":"hello"}}`,
			wantType: TypeMsg,
			wantRoom: "a@x.com",
			wantText: "hello",
		},
		{
			name:     "canonical envelope with bare string payload",
			raw:      `{"type":"msg","payload":"just text"}`,
			wantType: TypeMsg,
			wantText: "just text",
		},
		{
			name:     "legacy admin event with bare string data",
			raw:      `{"msg":"a@x.com","data":"hi"}`,
			wantType: TypeMsg,
			wantRoom: "a@x.com",
			wantText: "hi",
		},
		{
			name:     "legacy admin event with nested text",
			raw:      `{"msg":"a@x.com","data":{"text":"nested"}}`,
			wantType: TypeMsg,
			wantRoom: "a@x.com",
			wantText: "nested",
		},
		{
			name:     "legacy admin event with nested msg",
			raw:      `{"msg":"a@x.com","data":{"msg":"deeper"}}`,
			wantType: TypeMsg,
			wantRoom: "a@x.com",
			wantText: "deeper",
		},
		{
			name:     "legacy send with msg field",
			raw:      `{"roomId":"b@x.com","msg":"yo"}`,
			wantType: TypeMsg,
			wantRoom: "b@x.com",
			wantText: "yo",
		},
		{
			name:     "legacy send with text field",
			raw:      `{"roomId":"b@x.com","text":"yo","sender":"b@x.com"}`,
			wantType: TypeMsg,
			wantRoom: "b@x.com",
			wantText: "yo",
		},
		{
			name:     "legacy join ticket",
			raw:      `{"ticketId":"c@x.com","msg":"ji"}`,
			wantType: TypeJoin,
			wantRoom: "c@x.com",
		},
		{
			name:     "bare string frame",
			raw:      `"plain"`,
			wantType: TypeMsg,
			wantText: "plain",
		},
		{
			name:    "empty object",
			raw:     `{}`,
			wantErr: true,
		},
		{
			name:    "unknown envelope type",
			raw:     `{"type":"typing","payload":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `<html>`,
			wantErr: true,
		},
		{
			name:    "join without room",
			raw:     `{"type":"join","payload":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ev.Type)

			switch tt.wantType {
			case TypeJoin:
				assert.Equal(t, tt.wantRoom, ev.Join.Room())
			case TypeMsg:
				assert.Equal(t, tt.wantRoom, ev.Message.RoomID)
				assert.Equal(t, tt.wantText, ev.Message.Text)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := models.Message{
		ID:     "m1",
		RoomID: "a@x.com",
		Text:   "hello there",
		Sender: "a@x.com",
		SentAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	frame, err := EncodeMessage(msg)
	require.NoError(t, err)

	ev, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeMsg, ev.Type)
	assert.Equal(t, msg, ev.Message.Canonical())
}

func TestEncodeJoinRoundTrip(t *testing.T) {
	frame, err := EncodeJoin("a@x.com")
	require.NoError(t, err)

	ev, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeJoin, ev.Type)
	assert.Equal(t, "a@x.com", ev.Join.Room())
}
