package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"seatlane/internal/model"
)

// ActivityCounter is the slice of the audit log the fraud scorer reads:
// windowed counts of action tags per user or per email.
type ActivityCounter interface {
	CountByUserAndAction(ctx context.Context, userID uint64, action string, window time.Duration) (int, error)
	CountByEmailAndAction(ctx context.Context, email, action string, window time.Duration) (int, error)
}

// FraudResult is the outcome of one evaluation. Reason is a human
// readable trace of the signals that fired, "OK" when none did and
// prefixed "BLOCKED" when the score reached the threshold.
type FraudResult struct {
	Score   int
	Blocked bool
	Reason  string
}

// FraudThresholds are the tunable knobs of the scorer: the cumulative
// score at which an action is refused and the trailing windows each
// signal is counted over.
type FraudThresholds struct {
	BlockThreshold int
	LoginFailWin   time.Duration
	BookFailWin    time.Duration
	PayFailWin     time.Duration
	QuickBookWin   time.Duration

	// Seat-specific permanent block.
	SeatAbuseLimit  int
	SeatAbuseWindow time.Duration
}

// FraudService scores booking and payment attempts from recent audit
// activity. Scoring is advisory and additive: each signal that fires
// contributes points, and the attempt is refused once the total reaches
// the threshold. The audit log is the only input; if a count query
// fails the signal silently contributes zero, so audit outages degrade
// the guard to permissive rather than blocking everyone.
type FraudService struct {
	counter ActivityCounter
	th      FraudThresholds
}

// NewFraudService returns a scorer reading from the given counter.
func NewFraudService(counter ActivityCounter, th FraudThresholds) *FraudService {
	return &FraudService{counter: counter, th: th}
}

// EvaluateBooking scores a booking attempt. A nil user scores straight
// to the threshold: anonymous booking attempts are always refused.
//
// Signals:
//   - 3+ failed logins on the user's email inside LoginFailWin: +3
//   - 2+ failed bookings inside BookFailWin: +1
//   - 3+ successful bookings inside QuickBookWin: +2
func (s *FraudService) EvaluateBooking(ctx context.Context, user *model.User) FraudResult {
	if user == nil {
		return FraudResult{Score: s.th.BlockThreshold, Blocked: true, Reason: "BLOCKED | No user context"}
	}

	score := 0
	var reasons []string

	if n := s.countByEmail(ctx, user.Email, model.ActionLoginFail, s.th.LoginFailWin); n >= 3 {
		score += 3
		reasons = append(reasons, fmt.Sprintf("%d failed logins in %s", n, s.th.LoginFailWin))
	}
	if n := s.countByUser(ctx, user.ID, model.ActionBookFail, s.th.BookFailWin); n >= 2 {
		score++
		reasons = append(reasons, fmt.Sprintf("%d failed bookings in %s", n, s.th.BookFailWin))
	}
	if n := s.countByUser(ctx, user.ID, model.ActionBookOK, s.th.QuickBookWin); n >= 3 {
		score += 2
		reasons = append(reasons, fmt.Sprintf("%d bookings in %s", n, s.th.QuickBookWin))
	}

	return s.verdict(score, reasons)
}

// EvaluatePayment scores a payment attempt. A nil user is refused the
// same way as in EvaluateBooking.
//
// Signals:
//   - 3+ failed logins on the user's email inside LoginFailWin: +3
//   - 2+ failed payments inside PayFailWin: +1
func (s *FraudService) EvaluatePayment(ctx context.Context, user *model.User) FraudResult {
	if user == nil {
		return FraudResult{Score: s.th.BlockThreshold, Blocked: true, Reason: "BLOCKED | No user context"}
	}

	score := 0
	var reasons []string

	if n := s.countByEmail(ctx, user.Email, model.ActionLoginFail, s.th.LoginFailWin); n >= 3 {
		score += 3
		reasons = append(reasons, fmt.Sprintf("%d failed logins in %s", n, s.th.LoginFailWin))
	}
	if n := s.countByUser(ctx, user.ID, model.ActionPayFail, s.th.PayFailWin); n >= 2 {
		score++
		reasons = append(reasons, fmt.Sprintf("%d failed payments in %s", n, s.th.PayFailWin))
	}

	return s.verdict(score, reasons)
}

// SeatPermanentlyBlocked reports whether the user has burned through the
// seat-specific expiry allowance: SeatAbuseLimit or more expired holds
// on this exact seat inside SeatAbuseWindow. The block never resets on
// its own; only entries aging out of the (year-long) window lift it.
func (s *FraudService) SeatPermanentlyBlocked(ctx context.Context, userID, seatID uint64) bool {
	n := s.countByUser(ctx, userID, model.SeatExpiredAction(seatID), s.th.SeatAbuseWindow)
	return n >= s.th.SeatAbuseLimit
}

func (s *FraudService) verdict(score int, reasons []string) FraudResult {
	if len(reasons) == 0 {
		return FraudResult{Score: score, Reason: "OK"}
	}
	reason := strings.Join(reasons, " | ")
	if score >= s.th.BlockThreshold {
		return FraudResult{Score: score, Blocked: true, Reason: "BLOCKED | " + reason}
	}
	return FraudResult{Score: score, Reason: reason}
}

func (s *FraudService) countByUser(ctx context.Context, userID uint64, action string, window time.Duration) int {
	n, err := s.counter.CountByUserAndAction(ctx, userID, action, window)
	if err != nil {
		log.Printf("fraud: count %s failed: %v", action, err)
		return 0
	}
	return n
}

func (s *FraudService) countByEmail(ctx context.Context, email, action string, window time.Duration) int {
	n, err := s.counter.CountByEmailAndAction(ctx, email, action, window)
	if err != nil {
		log.Printf("fraud: count %s failed: %v", action, err)
		return 0
	}
	return n
}
