//go:build integration

package repository

// These tests exercise the conditional-UPDATE state machine against a
// real MySQL, because the race semantics live entirely in the SQL.
// They need a disposable database:
//
//   TEST_MYSQL_DSN='root:secret@tcp(127.0.0.1:3306)/seatlane_test?parseTime=true&loc=UTC' \
//       go test -tags integration ./internal/repository/
//
// The schema is applied on startup; fixtures create their own rows, so
// reruns against the same database are fine.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	applySchema(t, db)
	return db
}

func applySchema(t *testing.T, db *sql.DB) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if onlyComments(stmt) {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

func mustExec(t *testing.T, db *sql.DB, q string, args ...interface{}) int64 {
	t.Helper()
	res, err := db.Exec(q, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", q, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// engineFixture is one isolated venue/event/seat setup with two users.
// Every run gets unique emails so reruns never trip the email
// uniqueness constraint.
type engineFixture struct {
	db       *sql.DB
	seats    *EventSeatRepo
	bookings *BookingRepo
	userID   uint64
	otherID  uint64
	venueID  uint64
	eventID  uint64
	seatIDs  []uint64
}

func newEngineFixture(t *testing.T, db *sql.DB, seatCount int) *engineFixture {
	t.Helper()
	suffix := time.Now().UnixNano()

	fx := &engineFixture{db: db, seats: NewEventSeatRepo(db)}
	fx.bookings = NewBookingRepo(db, fx.seats)

	fx.userID = uint64(mustExec(t, db,
		`INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'CUSTOMER')`,
		fmt.Sprintf("a%d@example.com", suffix)))
	fx.otherID = uint64(mustExec(t, db,
		`INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'CUSTOMER')`,
		fmt.Sprintf("b%d@example.com", suffix)))
	fx.venueID = uint64(mustExec(t, db,
		`INSERT INTO venues (name) VALUES (?)`, fmt.Sprintf("venue-%d", suffix)))
	fx.eventID = uint64(mustExec(t, db,
		`INSERT INTO events (venue_id, title, category, start_time) VALUES (?, ?, 'ROCK', ?)`,
		fx.venueID, fmt.Sprintf("event-%d", suffix), time.Now().UTC().Add(24*time.Hour)))

	for no := 1; no <= seatCount; no++ {
		seatID := uint64(mustExec(t, db,
			`INSERT INTO seats (venue_id, section, row_label, seat_no) VALUES (?, 'MAIN', 'A', ?)`,
			fx.venueID, no))
		mustExec(t, db,
			`INSERT INTO event_seats (event_id, seat_id, price_cents) VALUES (?, ?, 1500)`,
			fx.eventID, seatID)
		fx.seatIDs = append(fx.seatIDs, seatID)
	}
	return fx
}

func (fx *engineFixture) seatState(t *testing.T, seatID uint64) string {
	t.Helper()
	var state string
	err := fx.db.QueryRow(
		`SELECT state FROM event_seats WHERE event_id = ? AND seat_id = ?`,
		fx.eventID, seatID).Scan(&state)
	if err != nil {
		t.Fatalf("seat state: %v", err)
	}
	return state
}

func (fx *engineFixture) bookingStatus(t *testing.T, bookingID uint64) string {
	t.Helper()
	var status string
	err := fx.db.QueryRow(`SELECT status FROM bookings WHERE id = ?`, bookingID).Scan(&status)
	if err != nil {
		t.Fatalf("booking status: %v", err)
	}
	return status
}

func (fx *engineFixture) inTx(t *testing.T, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := fx.db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBookSeatSingleWinnerUnderContention(t *testing.T) {
	db := openTestDB(t)
	fx := newEngineFixture(t, db, 1)
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Minute)

	const racers = 8
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		uid := fx.userID
		if i%2 == 1 {
			uid = fx.otherID
		}
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := fx.bookings.BookSeat(ctx, uid, fx.eventID, fx.seatIDs[0], deadline)
			results <- err
		}(uid)
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSeatUnavailable):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != racers-1 {
		t.Fatalf("wins=%d losses=%d, want exactly one winner", wins, losses)
	}
	if got := fx.seatState(t, fx.seatIDs[0]); got != "HELD" {
		t.Fatalf("seat state after race = %s, want HELD", got)
	}
}

func TestSweepReleasesExpiredHoldsExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	fx := newEngineFixture(t, db, 2)
	ctx := context.Background()

	if _, err := fx.bookings.BookSeat(ctx, fx.userID, fx.eventID, fx.seatIDs[0], time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("book expired: %v", err)
	}
	if _, err := fx.bookings.BookSeat(ctx, fx.otherID, fx.eventID, fx.seatIDs[1], time.Now().Add(2*time.Minute)); err != nil {
		t.Fatalf("book live: %v", err)
	}

	seats, expired, err := fx.seats.SweepAndList(ctx, fx.eventID)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(expired) != 1 || expired[0].SeatID != fx.seatIDs[0] || expired[0].UserID != fx.userID {
		t.Fatalf("expired = %+v, want the lapsed hold only", expired)
	}
	states := map[uint64]string{}
	for _, s := range seats {
		states[s.SeatID] = s.State
	}
	if states[fx.seatIDs[0]] != "AVAILABLE" || states[fx.seatIDs[1]] != "HELD" {
		t.Fatalf("states = %v", states)
	}

	// A second sweep finds nothing: the release converged.
	if _, expired, err = fx.seats.SweepAndList(ctx, fx.eventID); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("second sweep reported %+v, want none", expired)
	}
}

func TestCancelOutcomeTaxonomy(t *testing.T) {
	db := openTestDB(t)
	fx := newEngineFixture(t, db, 2)
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Minute)

	bookingID, err := fx.bookings.BookSeat(ctx, fx.userID, fx.eventID, fx.seatIDs[0], deadline)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := fx.bookings.Cancel(ctx, fx.userID, bookingID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := fx.seatState(t, fx.seatIDs[0]); got != "AVAILABLE" {
		t.Fatalf("seat after cancel = %s, want AVAILABLE", got)
	}
	if got := fx.bookingStatus(t, bookingID); got != "CANCELLED" {
		t.Fatalf("booking after cancel = %s", got)
	}

	if err := fx.bookings.Cancel(ctx, fx.userID, bookingID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("repeat cancel = %v, want ErrAlreadyCancelled", err)
	}
	if err := fx.bookings.Cancel(ctx, fx.userID, bookingID+999999); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("unknown booking = %v, want ErrBookingNotFound", err)
	}

	paidID, err := fx.bookings.BookSeat(ctx, fx.userID, fx.eventID, fx.seatIDs[1], deadline)
	if err != nil {
		t.Fatalf("book second: %v", err)
	}
	if err := fx.bookings.Settle(ctx, fx.userID, paidID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := fx.bookings.Cancel(ctx, fx.userID, paidID); !errors.Is(err, ErrBookingNotPending) {
		t.Fatalf("cancel paid = %v, want ErrBookingNotPending", err)
	}
	if got := fx.seatState(t, fx.seatIDs[1]); got != "BOOKED" {
		t.Fatalf("paid seat after cancel attempt = %s, want BOOKED", got)
	}
}

func TestSettleFailsOnceSweepReclaimedTheSeat(t *testing.T) {
	db := openTestDB(t)
	fx := newEngineFixture(t, db, 1)
	ctx := context.Background()

	bookingID, err := fx.bookings.BookSeat(ctx, fx.userID, fx.eventID, fx.seatIDs[0], time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, _, err := fx.seats.SweepAndList(ctx, fx.eventID); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if err := fx.bookings.Settle(ctx, fx.userID, bookingID); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("settle = %v, want ErrHoldExpired", err)
	}
	if got := fx.bookingStatus(t, bookingID); got != "PENDING" {
		t.Fatalf("booking after failed settle = %s, want PENDING", got)
	}
	if got := fx.seatState(t, fx.seatIDs[0]); got != "AVAILABLE" {
		t.Fatalf("seat = %s, want AVAILABLE", got)
	}
}

func TestReleaseHoldRespectsStateAndHolder(t *testing.T) {
	db := openTestDB(t)
	fx := newEngineFixture(t, db, 2)
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Minute)

	bookingID, err := fx.bookings.BookSeat(ctx, fx.userID, fx.eventID, fx.seatIDs[0], deadline)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := fx.bookings.Settle(ctx, fx.userID, bookingID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	// A BOOKED seat is not touched by a release.
	fx.inTx(t, func(tx *sql.Tx) error {
		return fx.seats.ReleaseHoldTx(ctx, tx, fx.eventID, fx.seatIDs[0], fx.userID)
	})
	if got := fx.seatState(t, fx.seatIDs[0]); got != "BOOKED" {
		t.Fatalf("booked seat after release = %s, want BOOKED", got)
	}

	if _, err := fx.bookings.BookSeat(ctx, fx.otherID, fx.eventID, fx.seatIDs[1], deadline); err != nil {
		t.Fatalf("book other: %v", err)
	}
	// The wrong holder cannot release someone else's hold.
	fx.inTx(t, func(tx *sql.Tx) error {
		return fx.seats.ReleaseHoldTx(ctx, tx, fx.eventID, fx.seatIDs[1], fx.userID)
	})
	if got := fx.seatState(t, fx.seatIDs[1]); got != "HELD" {
		t.Fatalf("foreign hold after release = %s, want HELD", got)
	}
	fx.inTx(t, func(tx *sql.Tx) error {
		return fx.seats.ReleaseHoldTx(ctx, tx, fx.eventID, fx.seatIDs[1], fx.otherID)
	})
	if got := fx.seatState(t, fx.seatIDs[1]); got != "AVAILABLE" {
		t.Fatalf("own hold after release = %s, want AVAILABLE", got)
	}
}

func TestGenerateSeatsIdempotentAndCounted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSeatRepo(db)
	venueID := uint64(mustExec(t, db,
		`INSERT INTO venues (name) VALUES (?)`, fmt.Sprintf("venue-gen-%d", time.Now().UnixNano())))

	created, err := repo.GenerateForVenue(ctx, venueID, "MAIN", []string{"A", "B"}, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 6 {
		t.Fatalf("created = %d, want 6", created)
	}
	created, err = repo.GenerateForVenue(ctx, venueID, "MAIN", []string{"A", "B"}, 3)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if created != 0 {
		t.Fatalf("second run created = %d, want 0", created)
	}
	if n, err := repo.CountForVenue(ctx, venueID); err != nil || n != 6 {
		t.Fatalf("count = %d err=%v, want 6", n, err)
	}
}

func TestAuditCountsOverTrailingWindow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	audit := NewAuditLogRepo(db)
	action := fmt.Sprintf("TEST_SIGNAL_%d", time.Now().UnixNano())
	uid := uint64(mustExec(t, db,
		`INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'CUSTOMER')`,
		fmt.Sprintf("audit%d@example.com", time.Now().UnixNano())))

	audit.Log(ctx, "WARN", action, &uid, nil, "one")
	audit.Log(ctx, "WARN", action, &uid, nil, "two")
	audit.Log(ctx, "WARN", action, nil, nil, "anonymous")

	if n, err := audit.CountAction(ctx, action, time.Minute); err != nil || n != 3 {
		t.Fatalf("CountAction = %d err=%v, want 3", n, err)
	}
	if n, err := audit.CountByUserAndAction(ctx, uid, action, time.Minute); err != nil || n != 2 {
		t.Fatalf("CountByUserAndAction = %d err=%v, want 2", n, err)
	}
	if n, err := audit.CountAction(ctx, action+"_OTHER", time.Minute); err != nil || n != 0 {
		t.Fatalf("unrelated action count = %d err=%v, want 0", n, err)
	}
}
