package models

import "time"

// Visitor is a directory entry for someone who has opened a chat.
// The email doubles as the visitor's room id.
type Visitor struct {
	// ID is the unique identifier assigned when the visitor is first seen
	ID string `json:"_id"`

	// Email is the visitor's authenticated identity and room key
	Email string `json:"email"`

	// FirstSeenAt is when the visitor first joined their room
	FirstSeenAt time.Time `json:"first_seen_at"`

	// LastSeenAt is updated on each join from the visitor
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ListVisitorsResponse is the body of GET /users.
type ListVisitorsResponse []Visitor
