package model

import (
	"fmt"
	"time"
)

// Audit levels. The audit log is the sole source of truth for the
// rate-based abuse signals, so levels are informational only; counting
// queries key on the action tag.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Action tags written by the engine and its collaborators. Tags are
// free-form uppercase keywords; the fixed set below is what the abuse
// guard counts against.
const (
	ActionLoginOK          = "LOGIN_OK"
	ActionLoginFail        = "LOGIN_FAIL"
	ActionRegister         = "REGISTER"
	ActionBookOK           = "BOOK_OK"
	ActionBookFail         = "BOOK_FAIL"
	ActionBookBlocked      = "BOOK_BLOCKED"
	ActionPayOK            = "PAY_OK"
	ActionPayFail          = "PAY_FAIL"
	ActionPayBlocked       = "PAY_BLOCKED"
	ActionAdminDeleteEvent = "ADMIN_DELETE_EVENT"
)

// SeatExpiredAction builds the per-seat expiry tag, e.g.
// "BOOK_EXPIRED_SEAT_5". The seat-specific permanent block counts
// occurrences of exactly this tag for one (user, seat) pair.
func SeatExpiredAction(seatID uint64) string {
	return fmt.Sprintf("BOOK_EXPIRED_SEAT_%d", seatID)
}

// AuditEntry is an immutable row in the `security_logs` table. Entries
// are never updated or deleted; the monotonically increasing ID doubles
// as a tiebreaker when ordering by creation time.
type AuditEntry struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Action    string    `json:"action"`
	UserID    *uint64   `json:"user_id,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Details   string    `json:"details"`
}

// EmailCount is one row of the top-emails-by-action aggregation used by
// the (external) security dashboard.
type EmailCount struct {
	Email  string    `json:"email"`
	Count  int       `json:"count"`
	LastAt time.Time `json:"last_at"`
}
