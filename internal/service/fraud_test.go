package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"seatlane/internal/model"
)

// fakeCounter serves canned counts keyed by "user:<id>:<action>" and
// "email:<email>:<action>".
type fakeCounter struct {
	counts map[string]int
	err    error
}

func (f *fakeCounter) CountByUserAndAction(_ context.Context, userID uint64, action string, _ time.Duration) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts["user:"+itoa(userID)+":"+action], nil
}

func (f *fakeCounter) CountByEmailAndAction(_ context.Context, email, action string, _ time.Duration) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts["email:"+email+":"+action], nil
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

func defaultThresholds() FraudThresholds {
	return FraudThresholds{
		BlockThreshold:  3,
		LoginFailWin:    10 * time.Minute,
		BookFailWin:     10 * time.Minute,
		PayFailWin:      10 * time.Minute,
		QuickBookWin:    2 * time.Minute,
		SeatAbuseLimit:  3,
		SeatAbuseWindow: 365 * 24 * time.Hour,
	}
}

func testUser() *model.User {
	return &model.User{ID: 7, Email: "alice@example.com", Role: model.RoleCustomer}
}

func TestEvaluateBookingNilUser(t *testing.T) {
	s := NewFraudService(&fakeCounter{counts: map[string]int{}}, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), nil)
	if !res.Blocked {
		t.Fatal("nil user should be blocked")
	}
	if res.Score != 3 {
		t.Fatalf("score = %d, want 3", res.Score)
	}
	if res.Reason != "BLOCKED | No user context" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestEvaluateBookingClean(t *testing.T) {
	s := NewFraudService(&fakeCounter{counts: map[string]int{}}, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), testUser())
	if res.Blocked {
		t.Fatalf("clean user blocked: %q", res.Reason)
	}
	if res.Score != 0 || res.Reason != "OK" {
		t.Fatalf("got score=%d reason=%q, want 0/OK", res.Score, res.Reason)
	}
}

func TestEvaluateBookingLoginFailuresBlock(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{
		"email:alice@example.com:" + model.ActionLoginFail: 3,
	}}
	s := NewFraudService(counter, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), testUser())
	if !res.Blocked {
		t.Fatal("3 failed logins should block at threshold 3")
	}
	if res.Score != 3 {
		t.Fatalf("score = %d, want 3", res.Score)
	}
	if !strings.HasPrefix(res.Reason, "BLOCKED | ") {
		t.Fatalf("reason = %q, want BLOCKED prefix", res.Reason)
	}
}

func TestEvaluateBookingSubThresholdSignals(t *testing.T) {
	// Failed bookings alone score 1: suspicious but not blocked.
	counter := &fakeCounter{counts: map[string]int{
		"user:7:" + model.ActionBookFail: 2,
	}}
	s := NewFraudService(counter, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), testUser())
	if res.Blocked {
		t.Fatalf("score 1 should not block: %q", res.Reason)
	}
	if res.Score != 1 {
		t.Fatalf("score = %d, want 1", res.Score)
	}
	if strings.HasPrefix(res.Reason, "BLOCKED") || res.Reason == "OK" {
		t.Fatalf("reason = %q, want plain signal trace", res.Reason)
	}
}

func TestEvaluateBookingCombinedSignalsBlock(t *testing.T) {
	// 2 failed bookings (+1) and 3 rapid successes (+2) reach the threshold.
	counter := &fakeCounter{counts: map[string]int{
		"user:7:" + model.ActionBookFail: 2,
		"user:7:" + model.ActionBookOK:   3,
	}}
	s := NewFraudService(counter, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), testUser())
	if !res.Blocked {
		t.Fatalf("combined score 3 should block, got score=%d", res.Score)
	}
	if !strings.Contains(res.Reason, " | ") {
		t.Fatalf("reason should join both signals: %q", res.Reason)
	}
}

func TestEvaluatePaymentSignals(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{
		"user:7:" + model.ActionPayFail: 2,
	}}
	s := NewFraudService(counter, defaultThresholds())
	res := s.EvaluatePayment(context.Background(), testUser())
	if res.Blocked || res.Score != 1 {
		t.Fatalf("got blocked=%v score=%d, want unblocked score 1", res.Blocked, res.Score)
	}

	// Booking successes never count against payments.
	counter.counts["user:7:"+model.ActionBookOK] = 10
	res = s.EvaluatePayment(context.Background(), testUser())
	if res.Score != 1 {
		t.Fatalf("payment score = %d after unrelated bookings, want 1", res.Score)
	}
}

func TestCountErrorsDegradeToZero(t *testing.T) {
	s := NewFraudService(&fakeCounter{err: errors.New("db down")}, defaultThresholds())
	res := s.EvaluateBooking(context.Background(), testUser())
	if res.Blocked || res.Score != 0 || res.Reason != "OK" {
		t.Fatalf("audit outage must degrade to permissive, got %+v", res)
	}
}

func TestSeatPermanentlyBlocked(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{
		"user:7:" + model.SeatExpiredAction(42): 2,
	}}
	s := NewFraudService(counter, defaultThresholds())
	if s.SeatPermanentlyBlocked(context.Background(), 7, 42) {
		t.Fatal("2 expiries should not block at limit 3")
	}
	counter.counts["user:7:"+model.SeatExpiredAction(42)] = 3
	if !s.SeatPermanentlyBlocked(context.Background(), 7, 42) {
		t.Fatal("3 expiries should block")
	}
	// A different seat is unaffected.
	if s.SeatPermanentlyBlocked(context.Background(), 7, 43) {
		t.Fatal("block must be seat-specific")
	}
}
