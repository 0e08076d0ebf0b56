package model

import "fmt"

// Seat is a physical seat shell in a venue, independent of any event.
// The same shell is attached to many events through event_seats, each
// attachment carrying its own price and availability state.
//
// Fields:
//  ID       – primary key identifier.
//  VenueID  – owning venue.
//  Section  – section name (e.g. "MAIN", "BALCONY").
//  RowLabel – row letter(s) within the section.
//  SeatNo   – seat number within the row, starting at 1.
type Seat struct {
	ID       uint64 `json:"id"`
	VenueID  uint64 `json:"venue_id"`
	Section  string `json:"section"`
	RowLabel string `json:"row_label"`
	SeatNo   int    `json:"seat_no"`
}

// Label renders the human-readable seat label, e.g. "MAIN-A12".
func (s Seat) Label() string {
	return fmt.Sprintf("%s-%s%d", s.Section, s.RowLabel, s.SeatNo)
}
