package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejasmk/doorbell/internal/models"
)

// VisitorRegistry records every identity that has ever joined a room,
// in first-seen order. It backs the GET /users directory the admin
// console loads its roster from. Entries are never removed; a visitor
// who chatted once stays listable.
type VisitorRegistry struct {
	mu       sync.RWMutex
	visitors map[string]*models.Visitor
	order    []string
}

// NewVisitorRegistry creates an empty registry.
func NewVisitorRegistry() *VisitorRegistry {
	return &VisitorRegistry{
		visitors: make(map[string]*models.Visitor),
	}
}

// Touch records a join for email, creating the entry on first sight and
// refreshing LastSeenAt otherwise.
func (r *VisitorRegistry) Touch(email string) {
	if email == "" {
		return
	}
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.visitors[email]; ok {
		v.LastSeenAt = now
		return
	}
	r.visitors[email] = &models.Visitor{
		ID:          uuid.New().String(),
		Email:       email,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	r.order = append(r.order, email)
}

// List returns all visitors in first-seen order.
func (r *VisitorRegistry) List() []models.Visitor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Visitor, 0, len(r.order))
	for _, email := range r.order {
		out = append(out, *r.visitors[email])
	}
	return out
}

// Len reports the number of known visitors.
func (r *VisitorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
