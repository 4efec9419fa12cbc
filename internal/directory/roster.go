package directory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tejasmk/doorbell/internal/models"
)

// State is the roster's one-shot load state.
type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// Lister is the directory fetch the roster depends on.
type Lister interface {
	ListVisitors(ctx context.Context) ([]models.Visitor, error)
}

// Joiner is the slice of the messaging client the roster needs.
type Joiner interface {
	Join(roomID string)
}

// Entry is one visitor's row: their identity plus every message seen
// for their room this session, selected or not.
type Entry struct {
	Visitor  models.Visitor
	Messages []models.Message
	Unread   int
}

// Roster tracks all known rooms for the admin console. Histories
// accumulate per room from the moment the directory loads, so a room
// selected late still shows everything received since load.
type Roster struct {
	mu       sync.Mutex
	state    State
	entries  map[string]*Entry
	order    []string
	selected string
}

// NewRoster creates an empty roster in the loading state.
func NewRoster() *Roster {
	return &Roster{
		state:   StateLoading,
		entries: make(map[string]*Entry),
	}
}

// Load fetches the directory and joins every visitor's room. On
// failure the roster stays empty in the failed state; there is no retry
// transition. Returns the visitors joined.
func (r *Roster) Load(ctx context.Context, lister Lister, joiner Joiner) ([]models.Visitor, error) {
	visitors, err := lister.ListVisitors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[directory] fetch failed")
		r.mu.Lock()
		r.state = StateFailed
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	for _, v := range visitors {
		if _, ok := r.entries[v.Email]; ok {
			continue
		}
		r.entries[v.Email] = &Entry{Visitor: v}
		r.order = append(r.order, v.Email)
	}
	r.state = StateLoaded
	r.mu.Unlock()

	for _, v := range visitors {
		joiner.Join(v.Email)
	}
	log.Info().Int("visitors", len(visitors)).Msg("[directory] loaded")
	return visitors, nil
}

// State reports the load state.
func (r *Roster) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Receive files an inbound message under its room. Messages for rooms
// the directory doesn't know (not yet loaded, mismatched key) are
// dropped. Returns whether the message landed in the selected room.
func (r *Roster) Receive(msg models.Message) (selected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[msg.RoomID]
	if !ok {
		log.Debug().Str("room", msg.RoomID).Msg("[directory] message for unknown room dropped")
		return false
	}
	entry.Messages = append(entry.Messages, msg)
	if msg.RoomID == r.selected {
		return true
	}
	entry.Unread++
	return false
}

// AppendLocal files a locally sent reply under its room, so the reply
// is still there when the room is reselected later. The relay never
// echoes a message back to its sender, so without this the roster's
// history would hold only the visitor's side. Unread stays untouched.
func (r *Roster) AppendLocal(msg models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[msg.RoomID]
	if !ok {
		return
	}
	entry.Messages = append(entry.Messages, msg)
}

// Select makes roomID the active room, clears its unread count and
// returns a copy of the history accumulated so far. No refetch happens;
// selection only changes which history is rendered.
func (r *Roster) Select(roomID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.selected = roomID
	entry, ok := r.entries[roomID]
	if !ok {
		return nil
	}
	entry.Unread = 0
	return append([]models.Message(nil), entry.Messages...)
}

// Selected returns the active room id, empty when none.
func (r *Roster) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Entries returns the roster rows in directory order.
func (r *Roster) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.order))
	for _, email := range r.order {
		e := r.entries[email]
		out = append(out, Entry{
			Visitor:  e.Visitor,
			Messages: append([]models.Message(nil), e.Messages...),
			Unread:   e.Unread,
		})
	}
	return out
}

// Len reports the number of known rooms.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
