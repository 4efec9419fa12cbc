package relay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/tejasmk/doorbell/internal/models"
)

// Store persists room histories in a PebbleDB key-value store so a
// console joining a room can be served recent context. Keys are the
// room id, a zero byte, then an 8-byte big-endian sequence number that
// increases monotonically across the whole store.
type Store struct {
	db   *pebble.DB
	mu   sync.Mutex
	next uint64
}

// OpenStore opens (or creates) the store at dir.
func OpenStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	s := &Store{db: db}
	// Discover the next sequence by scanning for the highest suffix.
	it, err := db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()
	for it.First(); it.Valid(); it.Next() {
		if seq, ok := splitKey(it.Key()); ok && seq >= s.next {
			s.next = seq + 1
		}
	}
	return s, nil
}

func makeKey(roomID string, seq uint64) []byte {
	key := make([]byte, 0, len(roomID)+9)
	key = append(key, roomID...)
	key = append(key, 0)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

// splitKey extracts the sequence suffix from a key.
func splitKey(key []byte) (uint64, bool) {
	if len(key) < 9 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), true
}

// roomBounds returns the iterator bounds covering one room's keys.
func roomBounds(roomID string) ([]byte, []byte) {
	lower := append([]byte(roomID), 0)
	upper := append([]byte(roomID), 1)
	return lower, upper
}

// Append persists msg under its room.
func (s *Store) Append(msg models.Message) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := makeKey(msg.RoomID, s.next)
	s.next++
	val, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return s.db.Set(key, val, pebble.Sync)
}

// LoadRecent loads the most recent limit messages for a room, oldest
// first. limit <= 0 loads the whole room.
func (s *Store) LoadRecent(roomID string, limit int) ([]models.Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	lower, upper := roomBounds(roomID)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	out := make([]models.Message, 0, 64)
	for it.First(); it.Valid(); it.Next() {
		var m models.Message
		if err := json.Unmarshal(it.Value(), &m); err == nil {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Rooms lists the distinct rooms present in the store, used to seed the
// visitor directory after a restart.
func (s *Store) Rooms() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var rooms []string
	var last []byte
	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		if len(key) < 9 {
			continue
		}
		room := key[:len(key)-9]
		if bytes.Equal(room, last) {
			continue
		}
		last = append(last[:0], room...)
		rooms = append(rooms, string(room))
	}
	return rooms, nil
}

// TrimRoom deletes all but the newest keep messages of a room. Used by
// the retention worker to stop histories growing without bound.
func (s *Store) TrimRoom(roomID string, keep int) (int, error) {
	if s == nil || s.db == nil || keep < 0 {
		return 0, nil
	}
	lower, upper := roomBounds(roomID)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, err
	}

	var keys [][]byte
	for it.First(); it.Valid(); it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return 0, err
	}

	excess := len(keys) - keep
	if excess <= 0 {
		return 0, nil
	}
	// keys[excess] is the first retained key; the range upper bound is
	// exclusive, so this removes exactly the excess oldest entries.
	if err := s.db.DeleteRange(keys[0], keys[excess], pebble.Sync); err != nil {
		return 0, err
	}
	return excess, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
