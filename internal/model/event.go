package model

import "time"

// Event status values stored in events.status. A DELETED event is a
// soft delete: the row stays, its seats are BLOCKED, and it no longer
// appears in customer listings.
const (
	EventActive  = "ACTIVE"
	EventDeleted = "DELETED"
)

// Event represents a row in the `events` table together with the
// derived seats_left aggregate used by listing queries.
//
// Fields:
//  ID        – primary key identifier.
//  VenueID   – venue whose seats were attached to this event.
//  Title     – display title.
//  Category  – free-form category used by the recommendation query.
//  StartTime – scheduled start, UTC.
//  Status    – ACTIVE or DELETED.
//  SeatsLeft – number of event seats currently AVAILABLE (computed).
type Event struct {
	ID        uint64    `json:"id"`
	VenueID   uint64    `json:"venue_id,omitempty"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status,omitempty"`
	SeatsLeft int       `json:"seats_left"`
}
