package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"seatlane/internal/model"
)

// AuditLogRepo is the append-only audit sink. Entries are immutable and
// are the sole source of truth for the rate-based abuse signals, so the
// write path is best-effort by contract: a failed insert must never
// block or fail the business operation that produced it. The counting
// queries all measure trailing windows ending now.
type AuditLogRepo struct {
	db *sql.DB
}

// NewAuditLogRepo returns an AuditLogRepo bound to the given database.
func NewAuditLogRepo(db *sql.DB) *AuditLogRepo { return &AuditLogRepo{db: db} }

// Log appends one audit entry. Level defaults to INFO and action to
// UNKNOWN; both are normalized to uppercase. Insert errors are logged
// to the process log and otherwise swallowed.
func (r *AuditLogRepo) Log(ctx context.Context, level, action string, userID *uint64, email *string, details string) {
	const q = `INSERT INTO security_logs (level, action, user_id, email, details) VALUES (?, ?, ?, ?, ?)`

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: int64(*userID), Valid: true}
	}
	var em sql.NullString
	if email != nil && *email != "" {
		em = sql.NullString{String: *email, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, q, normalizeLevel(level), normalizeAction(action), uid, em, details); err != nil {
		log.Printf("audit: write failed (action=%s): %v", action, err)
	}
}

// CountByUserAndAction counts entries for one user and action inside
// the trailing window. Used by the abuse guard and the seat-specific
// permanent block.
func (r *AuditLogRepo) CountByUserAndAction(ctx context.Context, userID uint64, action string, window time.Duration) (int, error) {
	const q = `SELECT COUNT(*)
	           FROM security_logs
	           WHERE user_id = ?
	             AND action = ?
	             AND created_at >= UTC_TIMESTAMP() - INTERVAL ? SECOND`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, normalizeAction(action), int64(window.Seconds())).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CountByEmailAndAction counts entries for one email (case-insensitive)
// and action inside the trailing window.
func (r *AuditLogRepo) CountByEmailAndAction(ctx context.Context, email, action string, window time.Duration) (int, error) {
	if strings.TrimSpace(email) == "" {
		return 0, nil
	}
	const q = `SELECT COUNT(*)
	           FROM security_logs
	           WHERE LOWER(COALESCE(email, '')) = LOWER(?)
	             AND action = ?
	             AND created_at >= UTC_TIMESTAMP() - INTERVAL ? SECOND`
	var n int
	err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(email), normalizeAction(action), int64(window.Seconds())).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CountAction counts all entries with the given action inside the
// trailing window, regardless of who triggered them.
func (r *AuditLogRepo) CountAction(ctx context.Context, action string, window time.Duration) (int, error) {
	const q = `SELECT COUNT(*)
	           FROM security_logs
	           WHERE action = ?
	             AND created_at >= UTC_TIMESTAMP() - INTERVAL ? SECOND`
	var n int
	err := r.db.QueryRowContext(ctx, q, normalizeAction(action), int64(window.Seconds())).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// TopEmailsByAction aggregates the most frequent non-empty emails for
// an action inside the trailing window, most active first.
func (r *AuditLogRepo) TopEmailsByAction(ctx context.Context, action string, window time.Duration, limit int) ([]model.EmailCount, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT LOWER(COALESCE(email, '')) AS email,
	                  COUNT(*)                   AS cnt,
	                  MAX(created_at)            AS last_at
	           FROM security_logs
	           WHERE action = ?
	             AND created_at >= UTC_TIMESTAMP() - INTERVAL ? SECOND
	             AND COALESCE(email, '') <> ''
	           GROUP BY LOWER(COALESCE(email, ''))
	           ORDER BY cnt DESC, last_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, normalizeAction(action), int64(window.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EmailCount
	for rows.Next() {
		var ec model.EmailCount
		if err := rows.Scan(&ec.Email, &ec.Count, &ec.LastAt); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// Latest returns the most recent entries, newest first. The id is the
// tiebreaker for entries created in the same instant.
func (r *AuditLogRepo) Latest(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT id, created_at, level, action, user_id, email, details
	           FROM security_logs
	           ORDER BY created_at DESC, id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// Search filters entries by exact level and action plus an email
// substring, newest first. Empty filters match everything.
func (r *AuditLogRepo) Search(ctx context.Context, level, action, emailLike string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `SELECT id, created_at, level, action, user_id, email, details
	           FROM security_logs
	           WHERE (? = '' OR level = ?)
	             AND (? = '' OR action = ?)
	             AND (? = '' OR LOWER(COALESCE(email, '')) LIKE ?)
	           ORDER BY created_at DESC, id DESC
	           LIMIT ?`

	lvl := strings.ToUpper(strings.TrimSpace(level))
	act := strings.ToUpper(strings.TrimSpace(action))
	em := strings.ToLower(strings.TrimSpace(emailLike))
	pattern := ""
	if em != "" {
		pattern = "%" + em + "%"
	}
	rows, err := r.db.QueryContext(ctx, q, lvl, lvl, act, act, em, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows *sql.Rows) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	for rows.Next() {
		var (
			e   model.AuditEntry
			uid sql.NullInt64
			em  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Level, &e.Action, &uid, &em, &e.Details); err != nil {
			return nil, err
		}
		if uid.Valid {
			u := uint64(uid.Int64)
			e.UserID = &u
		}
		if em.Valid {
			s := em.String
			e.Email = &s
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func normalizeLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		return model.LevelInfo
	}
	return level
}

func normalizeAction(action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "" {
		return "UNKNOWN"
	}
	return action
}
