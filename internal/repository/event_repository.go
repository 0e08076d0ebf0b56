package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"seatlane/internal/model"
)

// EventRepo provides access to the events table and the seats_left
// aggregation used by the catalogue listings.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts a new ACTIVE event and returns its id.
func (r *EventRepo) Create(ctx context.Context, venueID uint64, title, description, category string, startTime time.Time) (uint64, error) {
	const q = `INSERT INTO events (venue_id, title, description, category, start_time, status)
	           VALUES (?, ?, ?, ?, ?, 'ACTIVE')`
	res, err := r.db.ExecContext(ctx, q, venueID, title, description, category, startTime.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// VenueID resolves the venue an event belongs to.
func (r *EventRepo) VenueID(ctx context.Context, eventID uint64) (uint64, error) {
	var venueID uint64
	err := r.db.QueryRowContext(ctx, `SELECT venue_id FROM events WHERE id = ?`, eventID).Scan(&venueID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	return venueID, err
}

// Active lists all ACTIVE events with their remaining AVAILABLE seat
// counts, soonest first.
func (r *EventRepo) Active(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT e.id, e.title, e.category, e.start_time,
	                  COALESCE(SUM(CASE WHEN es.state = 'AVAILABLE' THEN 1 ELSE 0 END), 0) AS seats_left
	           FROM events e
	           LEFT JOIN event_seats es ON es.event_id = e.id
	           WHERE e.status = 'ACTIVE'
	           GROUP BY e.id, e.title, e.category, e.start_time
	           ORDER BY e.start_time`
	return r.queryEvents(ctx, q)
}

// AllAdmin lists every event regardless of status, for admin tooling.
func (r *EventRepo) AllAdmin(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT e.id, e.title, e.category, e.start_time,
	                  COALESCE(SUM(CASE WHEN es.state = 'AVAILABLE' THEN 1 ELSE 0 END), 0) AS seats_left
	           FROM events e
	           LEFT JOIN event_seats es ON es.event_id = e.id
	           GROUP BY e.id, e.title, e.category, e.start_time
	           ORDER BY e.start_time`
	return r.queryEvents(ctx, q)
}

// RecommendedForUser suggests upcoming events in the user's favourite
// categories (their three most-booked), falling back to all upcoming
// events for users with no booking history. Events the user already
// booked are excluded.
func (r *EventRepo) RecommendedForUser(ctx context.Context, userID uint64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 8
	}
	if limit > 50 {
		limit = 50
	}
	const q = `WITH fav AS (
	               SELECT e.category, COUNT(*) AS cnt
	               FROM bookings b
	               JOIN events e ON e.id = b.event_id
	               WHERE b.user_id = ?
	               GROUP BY e.category
	               ORDER BY cnt DESC
	               LIMIT 3
	           )
	           SELECT e.id, e.title, e.category, e.start_time,
	                  COALESCE(SUM(CASE WHEN es.state = 'AVAILABLE' THEN 1 ELSE 0 END), 0) AS seats_left
	           FROM events e
	           LEFT JOIN event_seats es ON es.event_id = e.id
	           WHERE e.status = 'ACTIVE'
	             AND e.start_time >= UTC_TIMESTAMP()
	             AND (
	                   NOT EXISTS (SELECT 1 FROM fav)
	                   OR e.category IN (SELECT category FROM fav)
	             )
	             AND NOT EXISTS (
	                   SELECT 1 FROM bookings b
	                   WHERE b.user_id = ? AND b.event_id = e.id
	             )
	           GROUP BY e.id, e.title, e.category, e.start_time
	           ORDER BY
	             CASE
	               WHEN EXISTS (SELECT 1 FROM fav) AND e.category IN (SELECT category FROM fav) THEN 0
	               ELSE 1
	             END,
	             e.start_time
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// SoftDelete marks an event DELETED and blocks all of its seats in one
// transaction. Reports whether the event row actually changed; deleting
// an already-deleted or missing event is a no-op with updated=false.
func (r *EventRepo) SoftDelete(ctx context.Context, seats *EventSeatRepo, eventID uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE events SET status = 'DELETED' WHERE id = ? AND status <> 'DELETED'`
	res, err := tx.ExecContext(ctx, q, eventID)
	if err != nil {
		return false, err
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := seats.BlockSeatsForEventTx(ctx, tx, eventID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return updated > 0, nil
}

func (r *EventRepo) queryEvents(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var out []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.StartTime, &e.SeatsLeft); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
