package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"seatlane/internal/model"
	"seatlane/internal/queue"
	"seatlane/internal/repository"
)

// BookingStore is the transactional surface of the bookings tables the
// coordinator drives. Every method is atomic: it either commits all of
// its row changes or none.
type BookingStore interface {
	BookSeat(ctx context.Context, userID, eventID, seatID uint64, expiresAt time.Time) (uint64, error)
	Settle(ctx context.Context, userID, bookingID uint64) error
	Cancel(ctx context.Context, userID, bookingID uint64) error
	CanStartPayment(ctx context.Context, userID, bookingID uint64) (bool, error)
	AmountCents(ctx context.Context, userID, bookingID uint64) (uint32, error)
	HistoryByUser(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error)
}

// SeatStore is the seat-map surface: the combined sweep-and-list the
// read path runs.
type SeatStore interface {
	SweepAndList(ctx context.Context, eventID uint64) ([]model.SeatInfo, []repository.ExpiredHold, error)
}

// AuditSink accepts audit entries. Writes are best-effort and never
// return an error to the caller.
type AuditSink interface {
	Log(ctx context.Context, level, action string, userID *uint64, email *string, details string)
}

// PaymentStore records charge attempts against bookings.
type PaymentStore interface {
	Create(ctx context.Context, bookingID uint64, provider, orderID string, amountCents uint32) (uint64, error)
	MarkCompleted(ctx context.Context, paymentID uint64, captureID string) error
	MarkFailed(ctx context.Context, paymentID uint64, reason string) error
}

// EventPublisher hands lifecycle events to the message queue. Publishes
// are best-effort; the coordinator logs failures and moves on.
type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, evt queue.BookingPaidEvent) error
	PublishSeatsExpired(ctx context.Context, evt queue.SeatsExpiredEvent) error
}

// BlockedError is returned when the fraud scorer refuses an attempt.
// Handlers surface the score and reason instead of a generic failure.
type BlockedError struct {
	Score  int
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by fraud guard (score %d): %s", e.Score, e.Reason)
}

// BookingService coordinates the booking lifecycle: the fraud check in
// front of every money-adjacent operation, the atomic store operations,
// the audit trail those checks feed on, and the queue events emitted on
// settlement and sweep. The service holds no state of its own; all
// truth lives in the store and the audit log.
type BookingService struct {
	store    BookingStore
	seats    SeatStore
	payments PaymentStore
	provider PaymentProvider
	fraud    *FraudService
	audit    AuditSink
	pub      EventPublisher
	holdTTL  time.Duration
	now      func() time.Time
}

// NewBookingService wires the coordinator. pub may be nil when no
// message queue is configured; publishes are then skipped.
func NewBookingService(store BookingStore, seats SeatStore, payments PaymentStore,
	provider PaymentProvider, fraud *FraudService, audit AuditSink,
	pub EventPublisher, holdTTL time.Duration) *BookingService {
	return &BookingService{
		store:    store,
		seats:    seats,
		payments: payments,
		provider: provider,
		fraud:    fraud,
		audit:    audit,
		pub:      pub,
		holdTTL:  holdTTL,
		now:      time.Now,
	}
}

// BookSeat runs the full single-seat booking attempt: fraud evaluation,
// the seat-specific permanent block, then the atomic hold-and-record
// transaction. Every outcome leaves an audit entry, which is what the
// fraud scorer counts on next time.
func (s *BookingService) BookSeat(ctx context.Context, user *model.User, eventID, seatID uint64) (uint64, error) {
	res := s.fraud.EvaluateBooking(ctx, user)
	if res.Blocked {
		s.audit.Log(ctx, model.LevelWarn, model.ActionBookBlocked, userRef(user), emailRef(user),
			fmt.Sprintf("booking refused for event %d seat %d: %s", eventID, seatID, res.Reason))
		return 0, &BlockedError{Score: res.Score, Reason: res.Reason}
	}

	if s.fraud.SeatPermanentlyBlocked(ctx, user.ID, seatID) {
		s.audit.Log(ctx, model.LevelWarn, model.ActionBookBlocked, &user.ID, &user.Email,
			fmt.Sprintf("seat %d permanently blocked for user after repeated hold expiries", seatID))
		return 0, repository.ErrSeatBlocked
	}

	expiresAt := s.now().Add(s.holdTTL)
	bookingID, err := s.store.BookSeat(ctx, user.ID, eventID, seatID, expiresAt)
	if errors.Is(err, repository.ErrSeatUnavailable) {
		s.audit.Log(ctx, model.LevelWarn, model.ActionBookFail, &user.ID, &user.Email,
			fmt.Sprintf("seat %d not available for event %d", seatID, eventID))
		return 0, err
	}
	if err != nil {
		s.audit.Log(ctx, model.LevelError, model.ActionBookFail, &user.ID, &user.Email,
			fmt.Sprintf("booking for event %d seat %d failed: %v", eventID, seatID, err))
		return 0, err
	}

	s.audit.Log(ctx, model.LevelInfo, model.ActionBookOK, &user.ID, &user.Email,
		fmt.Sprintf("booking %d created: event %d seat %d, hold until %s",
			bookingID, eventID, seatID, expiresAt.UTC().Format(time.RFC3339)))
	return bookingID, nil
}

// CanStartPayment reports whether payment can start for the booking:
// it must be PENDING, owned by the user, and all of its holds alive.
func (s *BookingService) CanStartPayment(ctx context.Context, userID, bookingID uint64) (bool, error) {
	return s.store.CanStartPayment(ctx, userID, bookingID)
}

// Pay charges and settles a booking. The charge happens first and the
// settlement second, so a hold that expires between the two leaves the
// payment FAILED and the seats unsold rather than half-settled. The
// amount charged is the sum of the prices captured at hold time.
func (s *BookingService) Pay(ctx context.Context, user *model.User, bookingID uint64) error {
	res := s.fraud.EvaluatePayment(ctx, user)
	if res.Blocked {
		s.audit.Log(ctx, model.LevelWarn, model.ActionPayBlocked, userRef(user), emailRef(user),
			fmt.Sprintf("payment refused for booking %d: %s", bookingID, res.Reason))
		return &BlockedError{Score: res.Score, Reason: res.Reason}
	}

	amount, err := s.store.AmountCents(ctx, user.ID, bookingID)
	if err != nil {
		return err
	}

	orderID, err := s.provider.CreateOrder(ctx, bookingID, amount)
	if err != nil {
		s.audit.Log(ctx, model.LevelError, model.ActionPayFail, &user.ID, &user.Email,
			fmt.Sprintf("order creation for booking %d failed: %v", bookingID, err))
		return err
	}
	paymentID, err := s.payments.Create(ctx, bookingID, s.provider.Name(), orderID, amount)
	if err != nil {
		return err
	}

	capture, err := s.provider.Capture(ctx, orderID)
	if err != nil {
		s.failPayment(ctx, user, bookingID, paymentID, fmt.Sprintf("capture error: %v", err))
		return err
	}
	if !capture.Approved {
		s.failPayment(ctx, user, bookingID, paymentID, "declined: "+capture.Reason)
		return repository.ErrPaymentDeclined
	}

	if err := s.store.Settle(ctx, user.ID, bookingID); err != nil {
		if errors.Is(err, repository.ErrHoldExpired) {
			s.failPayment(ctx, user, bookingID, paymentID, "hold expired before settlement")
		} else {
			s.failPayment(ctx, user, bookingID, paymentID, fmt.Sprintf("settlement failed: %v", err))
		}
		return err
	}

	if err := s.payments.MarkCompleted(ctx, paymentID, capture.CaptureID); err != nil {
		log.Printf("booking: payment %d settled but completion mark failed: %v", paymentID, err)
	}
	s.audit.Log(ctx, model.LevelInfo, model.ActionPayOK, &user.ID, &user.Email,
		fmt.Sprintf("booking %d paid: %d cents via %s order %s", bookingID, amount, s.provider.Name(), orderID))

	if s.pub != nil {
		evt := queue.BookingPaidEvent{
			BookingID:   bookingID,
			UserID:      user.ID,
			AmountCents: amount,
			Provider:    s.provider.Name(),
			OrderID:     orderID,
			PaidAt:      s.now().UTC(),
		}
		if err := s.pub.PublishBookingPaid(ctx, evt); err != nil {
			log.Printf("booking: publish %s failed: %v", queue.BookingPaidQueue, err)
		}
	}
	return nil
}

// Cancel voids a PENDING booking and returns its still-held seats.
// Cancellation is not fraud-gated and leaves no audit entry; giving a
// seat back is never abuse.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uint64) error {
	return s.store.Cancel(ctx, userID, bookingID)
}

// History lists the user's live bookings: all PAID plus PENDING ones
// whose hold has not lapsed.
func (s *BookingService) History(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error) {
	return s.store.HistoryByUser(ctx, userID)
}

// SeatsForEvent returns the seat map for an event after sweeping lapsed
// holds. Each reclaimed hold is recorded against its former holder with
// the seat-specific expiry tag; three of those on the same seat within
// a year permanently block the pair.
func (s *BookingService) SeatsForEvent(ctx context.Context, eventID uint64) ([]model.SeatInfo, error) {
	seats, expired, err := s.seats.SweepAndList(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for _, eh := range expired {
		if eh.UserID == 0 {
			continue
		}
		uid := eh.UserID
		s.audit.Log(ctx, model.LevelWarn, model.SeatExpiredAction(eh.SeatID), &uid, nil,
			fmt.Sprintf("hold on event %d seat %d expired and was released", eh.EventID, eh.SeatID))
	}

	if s.pub != nil && len(expired) > 0 {
		evt := queue.SeatsExpiredEvent{SweptAt: s.now().UTC(), TriggerBy: "seat-list"}
		for _, eh := range expired {
			evt.Seats = append(evt.Seats, queue.ExpiredSeat{EventID: eh.EventID, SeatID: eh.SeatID, UserID: eh.UserID})
		}
		if err := s.pub.PublishSeatsExpired(ctx, evt); err != nil {
			log.Printf("booking: publish %s failed: %v", queue.SeatsExpiredQueue, err)
		}
	}
	return seats, nil
}

// failPayment marks the payment row FAILED and writes the PAY_FAIL
// audit entry the payment fraud signal counts.
func (s *BookingService) failPayment(ctx context.Context, user *model.User, bookingID, paymentID uint64, reason string) {
	if err := s.payments.MarkFailed(ctx, paymentID, reason); err != nil {
		log.Printf("booking: marking payment %d failed: %v", paymentID, err)
	}
	s.audit.Log(ctx, model.LevelWarn, model.ActionPayFail, &user.ID, &user.Email,
		fmt.Sprintf("payment for booking %d failed: %s", bookingID, reason))
}

func userRef(u *model.User) *uint64 {
	if u == nil {
		return nil
	}
	return &u.ID
}

func emailRef(u *model.User) *string {
	if u == nil {
		return nil
	}
	return &u.Email
}
