package model

import "time"

// Booking status values stored in bookings.status. A booking is created
// PENDING and transitions exactly once to PAID or CANCELLED; no further
// transitions are legal. A PENDING booking whose seat hold has expired
// is simply abandoned: the sweep reclaims the seat and the booking row
// stays PENDING, hidden from payable views.
const (
	BookingPending   = "PENDING"
	BookingPaid      = "PAID"
	BookingCancelled = "CANCELLED"
)

// BookingHistoryItem is the per-seat-line projection returned by the
// booking history query, joining booking, item, seat and event state.
type BookingHistoryItem struct {
	BookingID   uint64     `json:"booking_id"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status"`
	EventID     uint64     `json:"event_id"`
	EventTitle  string     `json:"event_title"`
	EventStart  time.Time  `json:"event_start"`
	EventStatus string     `json:"event_status"`
	EventActive bool       `json:"event_active"`
	SeatID      uint64     `json:"seat_id"`
	SeatLabel   string     `json:"seat_label"`
	PriceCents  uint32     `json:"price_cents"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}
