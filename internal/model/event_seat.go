package model

// Seat states stored in event_seats.state. The state machine is
// AVAILABLE -> HELD -> BOOKED, with HELD falling back to AVAILABLE when
// the hold expires or the booking is cancelled. BLOCKED is set when an
// event is soft-deleted and is never left by normal booking traffic.
// One event_seats row exists per (event_id, seat_id) pair; it is the
// unit of contention for the whole engine.
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatBooked    = "BOOKED"
	SeatBlocked   = "BLOCKED"
)

// SeatInfo is the listing projection returned to seat-map consumers:
// one entry per event seat with its label, price and current state.
type SeatInfo struct {
	SeatID     uint64 `json:"seat_id"`
	Label      string `json:"label"`
	PriceCents uint32 `json:"price_cents"`
	State      string `json:"state"`
}
