package repository

import (
	"context"
	"database/sql"
	"time"

	"seatlane/internal/model"
)

// ExpiredHold identifies one lapsed hold found by the sweep: the seat
// that was released and the user who had been holding it. The caller
// reports these to the audit log so the seat-specific abuse counter
// keeps growing.
type ExpiredHold struct {
	EventID uint64
	SeatID  uint64
	UserID  uint64
}

// EventSeatRepo mediates all seat state transitions on the event_seats
// table. Every transition is a conditional single-row (or bulk) UPDATE:
// the WHERE clause encodes the expected prior state and the affected
// row count tells the caller whether it won the race. No in-process
// locking is involved; the database's row locks under the conditional
// UPDATE are the only serialization discipline.
type EventSeatRepo struct {
	db *sql.DB
}

// NewEventSeatRepo returns an EventSeatRepo bound to the given database.
func NewEventSeatRepo(db *sql.DB) *EventSeatRepo { return &EventSeatRepo{db: db} }

// DB exposes the underlying handle so coordinating repositories can
// open transactions spanning event_seats and bookings.
func (r *EventSeatRepo) DB() *sql.DB { return r.db }

// TryHoldTx attempts the AVAILABLE -> HELD transition for one seat
// inside the caller's transaction. It reports true when this caller won
// the seat (exactly one row updated) and false when the seat was held
// by someone else, already booked, blocked, or absent. The hold carries
// the absolute expiry deadline; holds are never renewed.
func (r *EventSeatRepo) TryHoldTx(ctx context.Context, tx *sql.Tx, eventID, seatID, userID uint64, expiresAt time.Time) (bool, error) {
	const q = `UPDATE event_seats
	           SET state = 'HELD', held_by_user_id = ?, hold_expires_at = ?
	           WHERE event_id = ? AND seat_id = ? AND state = 'AVAILABLE'`
	res, err := tx.ExecContext(ctx, q, userID, expiresAt.UTC(), eventID, seatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseHoldTx clears one HELD seat back to AVAILABLE, but only while
// the given user still holds it. The state condition keeps a stale
// caller from clobbering a seat that has since been BOOKED; the holder
// condition keeps it from clobbering a hold someone else took after
// this user's expired.
func (r *EventSeatRepo) ReleaseHoldTx(ctx context.Context, tx *sql.Tx, eventID, seatID, userID uint64) error {
	const q = `UPDATE event_seats
	           SET state = 'AVAILABLE', held_by_user_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND seat_id = ? AND state = 'HELD' AND held_by_user_id = ?`
	_, err := tx.ExecContext(ctx, q, eventID, seatID, userID)
	return err
}

// BookHeldSeatsTx transitions every seat referenced by the booking's
// items from HELD (held by this user) to BOOKED, returning the number
// of rows that made the transition. Callers compare the count against
// the booking's item count: any shortfall means a hold expired or was
// taken over, and the surrounding transaction must roll back.
func (r *EventSeatRepo) BookHeldSeatsTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) (int64, error) {
	const q = `UPDATE event_seats
	           SET state = 'BOOKED', held_by_user_id = NULL, hold_expires_at = NULL
	           WHERE (event_id, seat_id) IN (
	               SELECT event_id, seat_id FROM booking_items WHERE booking_id = ?
	           )
	           AND state = 'HELD'
	           AND held_by_user_id = ?`
	res, err := tx.ExecContext(ctx, q, bookingID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepExpiredTx finds every HELD seat whose deadline has passed,
// returns the (event, seat, holder) triples for audit reporting, then
// releases them back to AVAILABLE in one bulk conditional update. The
// sweep is lazy: it runs at the start of read paths rather than on a
// timer, so a stale hold never survives past the next listing.
func (r *EventSeatRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx) ([]ExpiredHold, error) {
	const sel = `SELECT event_id, seat_id, held_by_user_id
	             FROM event_seats
	             WHERE state = 'HELD' AND hold_expires_at < UTC_TIMESTAMP()`
	rows, err := tx.QueryContext(ctx, sel)
	if err != nil {
		return nil, err
	}
	var expired []ExpiredHold
	for rows.Next() {
		var (
			eh  ExpiredHold
			uid sql.NullInt64
		)
		if err := rows.Scan(&eh.EventID, &eh.SeatID, &uid); err != nil {
			rows.Close()
			return nil, err
		}
		if uid.Valid {
			eh.UserID = uint64(uid.Int64)
		}
		expired = append(expired, eh)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	const upd = `UPDATE event_seats
	             SET state = 'AVAILABLE', held_by_user_id = NULL, hold_expires_at = NULL
	             WHERE state = 'HELD' AND hold_expires_at < UTC_TIMESTAMP()`
	if _, err := tx.ExecContext(ctx, upd); err != nil {
		return nil, err
	}
	return expired, nil
}

// SweepAndList runs the expiry sweep and then loads the seat map for
// one event, both inside a single transaction so the listing never
// shows a hold the sweep just released. The expired holds are returned
// alongside the listing for the caller to report.
func (r *EventSeatRepo) SweepAndList(ctx context.Context, eventID uint64) ([]model.SeatInfo, []ExpiredHold, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	expired, err := r.SweepExpiredTx(ctx, tx)
	if err != nil {
		return nil, nil, err
	}

	const q = `SELECT es.seat_id,
	                  CONCAT(s.section, '-', s.row_label, s.seat_no) AS seat_label,
	                  es.price_cents,
	                  es.state
	           FROM event_seats es
	           JOIN seats s ON s.id = es.seat_id
	           WHERE es.event_id = ?
	           ORDER BY s.section, s.row_label, s.seat_no`
	rows, err := tx.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, nil, err
	}
	var seats []model.SeatInfo
	for rows.Next() {
		var si model.SeatInfo
		if err := rows.Scan(&si.SeatID, &si.Label, &si.PriceCents, &si.State); err != nil {
			rows.Close()
			return nil, nil, err
		}
		seats = append(seats, si)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return seats, expired, nil
}

// AttachVenueSeatsToEvent creates the event_seats rows for every seat
// shell in the event's venue at the given price, all AVAILABLE. The
// insert is idempotent: seats already attached are skipped, so retried
// administration runs never duplicate rows. Returns the number of rows
// actually inserted.
func (r *EventSeatRepo) AttachVenueSeatsToEvent(ctx context.Context, eventID, venueID uint64, priceCents uint32) (int64, error) {
	const q = `INSERT IGNORE INTO event_seats (event_id, seat_id, price_cents, state)
	           SELECT ?, s.id, ?, 'AVAILABLE'
	           FROM seats s
	           WHERE s.venue_id = ?`
	res, err := r.db.ExecContext(ctx, q, eventID, priceCents, venueID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BlockSeatsForEventTx marks every seat of an event BLOCKED; used by
// the event soft delete. Already-blocked seats are left untouched.
func (r *EventSeatRepo) BlockSeatsForEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	const q = `UPDATE event_seats
	           SET state = 'BLOCKED', held_by_user_id = NULL, hold_expires_at = NULL
	           WHERE event_id = ? AND state <> 'BLOCKED'`
	_, err := tx.ExecContext(ctx, q, eventID)
	return err
}
