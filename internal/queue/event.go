package queue

import "time"

// Queue names. Both queues are declared durable by publisher and
// consumer alike, so whichever side starts first creates them.
const (
	BookingPaidQueue  = "booking.paid"
	SeatsExpiredQueue = "seat.expired"
)

// BookingPaidEvent is published after a booking settles: seats BOOKED,
// booking PAID, payment captured. Downstream consumers use it for
// ticket delivery and reporting.
type BookingPaidEvent struct {
	BookingID   uint64    `json:"booking_id"`
	UserID      uint64    `json:"user_id"`
	AmountCents uint32    `json:"amount_cents"`
	Provider    string    `json:"provider"`
	OrderID     string    `json:"order_id"`
	PaidAt      time.Time `json:"paid_at"`
}

// ExpiredSeat identifies one reclaimed hold inside a SeatsExpiredEvent.
type ExpiredSeat struct {
	EventID uint64 `json:"event_id"`
	SeatID  uint64 `json:"seat_id"`
	UserID  uint64 `json:"user_id,omitempty"`
}

// SeatsExpiredEvent is published when a sweep reclaims lapsed holds.
// One event carries the whole batch a single sweep released.
type SeatsExpiredEvent struct {
	Seats     []ExpiredSeat `json:"seats"`
	SweptAt   time.Time     `json:"swept_at"`
	TriggerBy string        `json:"trigger_by,omitempty"`
}
