package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasmk/doorbell/internal/conversation"
	"github.com/tejasmk/doorbell/internal/directory"
	"github.com/tejasmk/doorbell/internal/models"
)

type fakeLister struct {
	visitors []models.Visitor
}

func (f fakeLister) ListVisitors(context.Context) ([]models.Visitor, error) {
	return f.visitors, nil
}

type fakeJoiner struct{}

func (fakeJoiner) Join(string) {}

type fakeSender struct{}

func (fakeSender) Send(roomID, text string) models.Message {
	return models.Message{
		ID:     uuid.New().String(),
		RoomID: roomID,
		Text:   text,
		Sender: "operator@doorbell.local",
		SentAt: time.Now().UTC(),
	}
}

func loadedModel(t *testing.T) adminModel {
	t.Helper()
	roster := directory.NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: []models.Visitor{
		{ID: "1", Email: "a@x.com"},
		{ID: "2", Email: "b@x.com"},
	}}, fakeJoiner{})
	require.NoError(t, err)

	conv := conversation.New(fakeSender{})
	conv.SetIdentity("operator@doorbell.local")
	return newAdminModel(roster, conv)
}

func press(m adminModel, key tea.KeyType) adminModel {
	updated, _ := m.Update(tea.KeyMsg{Type: key})
	return updated.(adminModel)
}

func TestFirstKeypressSelectsRowUnderCursor(t *testing.T) {
	m := loadedModel(t)
	require.Empty(t, m.roster.Selected())

	// The first Down lands on the first visitor, not the second.
	m = press(m, tea.KeyDown)
	assert.Equal(t, "a@x.com", m.roster.Selected())

	m = press(m, tea.KeyDown)
	assert.Equal(t, "b@x.com", m.roster.Selected())
}

func TestReplyStillVisibleAfterSwitchingRooms(t *testing.T) {
	m := loadedModel(t)

	m = press(m, tea.KeyDown)
	require.Equal(t, "a@x.com", m.roster.Selected())

	m.input.SetValue("on it, give me a minute")
	m = press(m, tea.KeyEnter)
	require.Equal(t, 1, m.conv.Len())

	// Switch to the other visitor and back.
	m = press(m, tea.KeyDown)
	assert.Zero(t, m.conv.Len(), "other room starts empty")
	m = press(m, tea.KeyUp)
	require.Equal(t, "a@x.com", m.roster.Selected())

	msgs := m.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "on it, give me a minute", msgs[0].Text)
	assert.True(t, m.conv.IsMine(msgs[0]))
}
