package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasmk/doorbell/internal/models"
	"github.com/tejasmk/doorbell/internal/wire"
)

type fakeLister struct {
	visitors []models.Visitor
	err      error
}

func (f fakeLister) ListVisitors(context.Context) ([]models.Visitor, error) {
	return f.visitors, f.err
}

type fakeJoiner struct {
	joins []string
}

func (f *fakeJoiner) Join(roomID string) {
	f.joins = append(f.joins, roomID)
}

func twoVisitors() []models.Visitor {
	return []models.Visitor{
		{ID: "1", Email: "a@x.com"},
		{ID: "2", Email: "b@x.com"},
	}
}

func TestLoadJoinsEveryRoom(t *testing.T) {
	roster := NewRoster()
	joiner := &fakeJoiner{}

	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, joiner)
	require.NoError(t, err)

	assert.Equal(t, StateLoaded, roster.State())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, joiner.joins)

	entries := roster.Entries()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Empty(t, entry.Messages, "histories start empty")
		assert.Zero(t, entry.Unread)
	}
}

func TestLoadFailureLeavesRosterEmpty(t *testing.T) {
	roster := NewRoster()
	joiner := &fakeJoiner{}

	_, err := roster.Load(context.Background(), fakeLister{err: errors.New("directory down")}, joiner)
	require.Error(t, err)

	assert.Equal(t, StateFailed, roster.State())
	assert.Zero(t, roster.Len())
	assert.Empty(t, joiner.joins, "no rooms joined on failure")
}

func TestReceiveAccumulatesPerRoom(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)

	roster.Select("a@x.com")

	// Inbound for the selected room: lands there, no unread.
	selected := roster.Receive(models.Message{ID: "m1", RoomID: "a@x.com", Text: "hi", Sender: "a@x.com"})
	assert.True(t, selected)

	// Inbound for another room: accumulates with an unread mark.
	selected = roster.Receive(models.Message{ID: "m2", RoomID: "b@x.com", Text: "psst", Sender: "b@x.com"})
	assert.False(t, selected)

	entries := roster.Entries()
	assert.Len(t, entries[0].Messages, 1)
	assert.Zero(t, entries[0].Unread)
	assert.Len(t, entries[1].Messages, 1)
	assert.Equal(t, 1, entries[1].Unread)
}

func TestReceiveDropsUnknownRoom(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)

	roster.Receive(models.Message{ID: "m1", RoomID: "stranger@x.com", Text: "hi"})
	for _, entry := range roster.Entries() {
		assert.Empty(t, entry.Messages)
	}
}

func TestSelectShowsHistoryAccumulatedBeforeSelection(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)

	// Traffic arrives before the room is ever selected.
	roster.Receive(models.Message{ID: "m1", RoomID: "b@x.com", Text: "early", Sender: "b@x.com"})
	roster.Receive(models.Message{ID: "m2", RoomID: "b@x.com", Text: "later", Sender: "b@x.com"})

	history := roster.Select("b@x.com")
	require.Len(t, history, 2)
	assert.Equal(t, "early", history[0].Text)
	assert.Equal(t, "later", history[1].Text)

	entries := roster.Entries()
	assert.Zero(t, entries[1].Unread, "selection clears unread")
}

// A reply sent from the console never comes back from the relay, so the
// roster has to file it itself or it vanishes on reselect.
func TestLocalReplySurvivesReselect(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)

	roster.Select("a@x.com")
	roster.AppendLocal(models.Message{ID: "m1", RoomID: "a@x.com", Text: "on it", Sender: "operator@doorbell.local"})

	// Switch away and back.
	roster.Select("b@x.com")
	history := roster.Select("a@x.com")
	require.Len(t, history, 1)
	assert.Equal(t, "on it", history[0].Text)

	entries := roster.Entries()
	assert.Zero(t, entries[0].Unread, "own replies are never unread")
}

func TestAppendLocalDropsUnknownRoom(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)

	roster.AppendLocal(models.Message{ID: "m1", RoomID: "stranger@x.com", Text: "hi"})
	for _, entry := range roster.Entries() {
		assert.Empty(t, entry.Messages)
	}
}

// The legacy admin event shape must land in the right roster entry once
// normalized at the wire boundary.
func TestLegacyAdminEventReachesSelectedRoom(t *testing.T) {
	roster := NewRoster()
	_, err := roster.Load(context.Background(), fakeLister{visitors: twoVisitors()}, &fakeJoiner{})
	require.NoError(t, err)
	roster.Select("a@x.com")

	ev, err := wire.Decode([]byte(`{"msg":"a@x.com","data":"hi"}`))
	require.NoError(t, err)

	selected := roster.Receive(ev.Message.Canonical())
	assert.True(t, selected)

	history := roster.Select("a@x.com")
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Text)
}
