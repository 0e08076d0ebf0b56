package repository

import (
	"context"
	"database/sql"
)

// SeatRepo manages the physical seat shells of a venue. Shells are
// created once by an administrative bulk insert and never deleted;
// attaching them to events (with per-event price and state) is the
// EventSeatRepo's job.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GenerateForVenue bulk-inserts seat shells for one section of a venue:
// seatsPerRow seats for each row label. The insert is idempotent on the
// (venue_id, section, row_label, seat_no) uniqueness, so retried runs
// skip existing shells instead of duplicating them. Returns the number
// of rows actually inserted.
func (r *SeatRepo) GenerateForVenue(ctx context.Context, venueID uint64, section string, rowLabels []string, seatsPerRow int) (int64, error) {
	if len(rowLabels) == 0 || seatsPerRow <= 0 {
		return 0, nil
	}
	query := `INSERT IGNORE INTO seats (venue_id, section, row_label, seat_no) VALUES `
	args := make([]interface{}, 0, len(rowLabels)*seatsPerRow*4)
	first := true
	for _, row := range rowLabels {
		for no := 1; no <= seatsPerRow; no++ {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, ?, ?)"
			args = append(args, venueID, section, row, no)
		}
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountForVenue returns the number of seat shells in a venue.
func (r *SeatRepo) CountForVenue(ctx context.Context, venueID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE venue_id = ?`, venueID).Scan(&n)
	return n, err
}
