package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"seatlane/internal/model"
)

// BookingRepo owns the bookings and booking_items tables and composes
// the EventSeatRepo's transition primitives into the three atomic
// operations of the booking lifecycle: BookSeat, Settle and Cancel.
// Each runs in one transaction and either commits every row change or
// none of them.
type BookingRepo struct {
	db    *sql.DB
	seats *EventSeatRepo
}

// NewBookingRepo returns a BookingRepo composing the given seat store.
func NewBookingRepo(db *sql.DB, seats *EventSeatRepo) *BookingRepo {
	return &BookingRepo{db: db, seats: seats}
}

// BookSeat atomically holds one seat and records the PENDING booking
// for it. The seat transition, the booking row and the booking item are
// one transaction: losing the seat race rolls everything back and
// returns ErrSeatUnavailable. The price written to the item is the
// seat's current price, captured here and never re-read at payment
// time.
func (r *BookingRepo) BookSeat(ctx context.Context, userID, eventID, seatID uint64, expiresAt time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	won, err := r.seats.TryHoldTx(ctx, tx, eventID, seatID, userID, expiresAt)
	if err != nil {
		return 0, err
	}
	if !won {
		return 0, ErrSeatUnavailable
	}

	var priceCents uint32
	err = tx.QueryRowContext(ctx,
		`SELECT price_cents FROM event_seats WHERE event_id = ? AND seat_id = ?`,
		eventID, seatID).Scan(&priceCents)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, event_id, status) VALUES (?, ?, 'PENDING')`,
		userID, eventID)
	if err != nil {
		return 0, err
	}
	bookingID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO booking_items (booking_id, event_id, seat_id, price_cents) VALUES (?, ?, ?, ?)`,
		bookingID, eventID, seatID, priceCents)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(bookingID), nil
}

// Settle atomically finalizes a paid booking: every held seat of the
// booking becomes BOOKED and the booking itself flips PENDING -> PAID.
// If any seat is no longer HELD by this user the whole settlement rolls
// back with ErrHoldExpired, and a booking that already left PENDING
// rolls back with ErrBookingNotPending. Nothing is partially settled.
func (r *BookingRepo) Settle(ctx context.Context, userID, bookingID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var items int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM booking_items WHERE booking_id = ?`, bookingID).Scan(&items)
	if err != nil {
		return err
	}
	if items == 0 {
		return ErrBookingNotFound
	}

	booked, err := r.seats.BookHeldSeatsTx(ctx, tx, bookingID, userID)
	if err != nil {
		return err
	}
	if booked != items {
		return ErrHoldExpired
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'PAID', paid_at = UTC_TIMESTAMP()
		 WHERE id = ? AND user_id = ? AND status = 'PENDING'`,
		bookingID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotPending
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Cancel atomically cancels a PENDING booking: its still-held seats go
// back to AVAILABLE and the booking flips to CANCELLED. Repeat cancels
// lose the status race and get ErrAlreadyCancelled; cancelling a PAID
// booking gets ErrBookingNotPending.
func (r *BookingRepo) Cancel(ctx context.Context, userID, bookingID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	type seatRef struct{ eventID, seatID uint64 }
	rows, err := tx.QueryContext(ctx,
		`SELECT event_id, seat_id FROM booking_items WHERE booking_id = ?`, bookingID)
	if err != nil {
		return err
	}
	var refs []seatRef
	for rows.Next() {
		var ref seatRef
		if err := rows.Scan(&ref.eventID, &ref.seatID); err != nil {
			rows.Close()
			return err
		}
		refs = append(refs, ref)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	// Seats that already expired back to AVAILABLE, or that were re-held
	// by someone else, are left alone by the holder condition.
	for _, ref := range refs {
		if err := r.seats.ReleaseHoldTx(ctx, tx, ref.eventID, ref.seatID, userID); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'CANCELLED'
		 WHERE id = ? AND user_id = ? AND status = 'PENDING'`,
		bookingID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The conditional update lost; inspect the row to say why.
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM bookings WHERE id = ? AND user_id = ?`,
			bookingID, userID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		return ErrBookingNotPending
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CanStartPayment reports whether a booking is payable right now: it
// must be PENDING, owned by the user, and every one of its seats must
// still be HELD by that user with a live hold deadline.
func (r *BookingRepo) CanStartPayment(ctx context.Context, userID, bookingID uint64) (bool, error) {
	const q = `SELECT COUNT(*) AS total,
	                  SUM(CASE
	                        WHEN es.state = 'HELD'
	                         AND es.held_by_user_id = b.user_id
	                         AND es.hold_expires_at > UTC_TIMESTAMP()
	                        THEN 1 ELSE 0
	                      END) AS live
	           FROM bookings b
	           JOIN booking_items bi ON bi.booking_id = b.id
	           JOIN event_seats es ON es.event_id = bi.event_id AND es.seat_id = bi.seat_id
	           WHERE b.id = ? AND b.user_id = ? AND b.status = 'PENDING'`
	var (
		total int
		live  sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(&total, &live); err != nil {
		return false, err
	}
	return total > 0 && live.Valid && int(live.Int64) == total, nil
}

// AmountCents sums the captured item prices of a booking owned by the
// user. This is the amount charged at payment time; seat prices changed
// since the hold do not affect it.
func (r *BookingRepo) AmountCents(ctx context.Context, userID, bookingID uint64) (uint32, error) {
	const q = `SELECT COALESCE(SUM(bi.price_cents), 0), COUNT(bi.booking_id)
	           FROM bookings b
	           LEFT JOIN booking_items bi ON bi.booking_id = b.id
	           WHERE b.id = ? AND b.user_id = ?`
	var (
		sum   uint64
		items int
	)
	err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(&sum, &items)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && items == 0) {
		// LEFT JOIN yields a zero row for a missing booking only when
		// the bookings row itself exists; distinguish with a direct probe.
		var exists int
		probe := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE id = ? AND user_id = ?`,
			bookingID, userID).Scan(&exists)
		if probe != nil {
			return 0, probe
		}
		if exists == 0 {
			return 0, ErrBookingNotFound
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint32(sum), nil
}

// HistoryByUser lists the user's bookings that still matter: every PAID
// booking plus PENDING bookings whose hold is still alive. Expired
// PENDING bookings vanish from the history without any cleanup write.
// Newest bookings first.
func (r *BookingRepo) HistoryByUser(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error) {
	const q = `SELECT b.id, b.created_at, b.status, b.paid_at,
	                  e.id, e.title, e.start_time, e.status,
	                  bi.seat_id,
	                  CONCAT(s.section, '-', s.row_label, s.seat_no) AS seat_label,
	                  bi.price_cents
	           FROM bookings b
	           JOIN booking_items bi ON bi.booking_id = b.id
	           JOIN events e ON e.id = b.event_id
	           JOIN seats s ON s.id = bi.seat_id
	           JOIN event_seats es ON es.event_id = bi.event_id AND es.seat_id = bi.seat_id
	           WHERE b.user_id = ?
	             AND (
	                   b.status = 'PAID'
	                   OR (b.status = 'PENDING'
	                       AND es.state = 'HELD'
	                       AND es.held_by_user_id = b.user_id
	                       AND es.hold_expires_at > UTC_TIMESTAMP())
	             )
	           ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookingHistoryItem
	for rows.Next() {
		var (
			it     model.BookingHistoryItem
			paidAt sql.NullTime
		)
		if err := rows.Scan(&it.BookingID, &it.CreatedAt, &it.Status, &paidAt,
			&it.EventID, &it.EventTitle, &it.EventStart, &it.EventStatus,
			&it.SeatID, &it.SeatLabel, &it.PriceCents); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			it.PaidAt = &t
		}
		it.EventActive = it.EventStatus == model.EventActive
		out = append(out, it)
	}
	return out, rows.Err()
}
