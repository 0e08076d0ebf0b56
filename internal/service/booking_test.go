package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"seatlane/internal/model"
	"seatlane/internal/queue"
	"seatlane/internal/repository"
)

// ---- fakes ----

type auditRecord struct {
	Level   string
	Action  string
	UserID  *uint64
	Details string
}

type fakeAudit struct {
	entries []auditRecord
}

func (f *fakeAudit) Log(_ context.Context, level, action string, userID *uint64, _ *string, details string) {
	f.entries = append(f.entries, auditRecord{Level: level, Action: action, UserID: userID, Details: details})
}

func (f *fakeAudit) last() auditRecord {
	if len(f.entries) == 0 {
		return auditRecord{}
	}
	return f.entries[len(f.entries)-1]
}

type fakeStore struct {
	bookSeatID   uint64
	bookSeatErr  error
	gotExpiresAt time.Time

	settleErr error
	cancelErr error
	canPay    bool
	amount    uint32
	amountErr error
	history   []model.BookingHistoryItem
}

func (f *fakeStore) BookSeat(_ context.Context, _, _, _ uint64, expiresAt time.Time) (uint64, error) {
	f.gotExpiresAt = expiresAt
	return f.bookSeatID, f.bookSeatErr
}
func (f *fakeStore) Settle(_ context.Context, _, _ uint64) error  { return f.settleErr }
func (f *fakeStore) Cancel(_ context.Context, _, _ uint64) error  { return f.cancelErr }
func (f *fakeStore) CanStartPayment(_ context.Context, _, _ uint64) (bool, error) {
	return f.canPay, nil
}
func (f *fakeStore) AmountCents(_ context.Context, _, _ uint64) (uint32, error) {
	return f.amount, f.amountErr
}
func (f *fakeStore) HistoryByUser(_ context.Context, _ uint64) ([]model.BookingHistoryItem, error) {
	return f.history, nil
}

type fakeSeats struct {
	seats   []model.SeatInfo
	expired []repository.ExpiredHold
	err     error
}

func (f *fakeSeats) SweepAndList(_ context.Context, _ uint64) ([]model.SeatInfo, []repository.ExpiredHold, error) {
	return f.seats, f.expired, f.err
}

type fakePayments struct {
	created       bool
	completedWith string
	failedWith    string
}

func (f *fakePayments) Create(_ context.Context, _ uint64, _, _ string, _ uint32) (uint64, error) {
	f.created = true
	return 55, nil
}
func (f *fakePayments) MarkCompleted(_ context.Context, _ uint64, captureID string) error {
	f.completedWith = captureID
	return nil
}
func (f *fakePayments) MarkFailed(_ context.Context, _ uint64, reason string) error {
	f.failedWith = reason
	return nil
}

type fakeProvider struct {
	approved bool
	declined string
}

func (fakeProvider) Name() string { return "FAKE" }
func (fakeProvider) CreateOrder(_ context.Context, _ uint64, _ uint32) (string, error) {
	return "FAKE-ORDER-1", nil
}
func (f fakeProvider) Capture(_ context.Context, _ string) (CaptureResult, error) {
	if !f.approved {
		return CaptureResult{Approved: false, Reason: f.declined}, nil
	}
	return CaptureResult{Approved: true, CaptureID: "FAKE-CAPTURE-1"}, nil
}

type fakePub struct {
	paid    []queue.BookingPaidEvent
	expired []queue.SeatsExpiredEvent
}

func (f *fakePub) PublishBookingPaid(_ context.Context, evt queue.BookingPaidEvent) error {
	f.paid = append(f.paid, evt)
	return nil
}
func (f *fakePub) PublishSeatsExpired(_ context.Context, evt queue.SeatsExpiredEvent) error {
	f.expired = append(f.expired, evt)
	return nil
}

// ---- harness ----

type harness struct {
	svc      *BookingService
	store    *fakeStore
	seats    *fakeSeats
	payments *fakePayments
	audit    *fakeAudit
	counter  *fakeCounter
	pub      *fakePub
}

func newHarness(provider PaymentProvider) *harness {
	h := &harness{
		store:    &fakeStore{bookSeatID: 100, canPay: true, amount: 2500},
		seats:    &fakeSeats{},
		payments: &fakePayments{},
		audit:    &fakeAudit{},
		counter:  &fakeCounter{counts: map[string]int{}},
		pub:      &fakePub{},
	}
	fraud := NewFraudService(h.counter, defaultThresholds())
	h.svc = NewBookingService(h.store, h.seats, h.payments, provider, fraud, h.audit, h.pub, 2*time.Minute)
	return h
}

// ---- booking ----

func TestBookSeatSuccess(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	start := time.Now()

	id, err := h.svc.BookSeat(context.Background(), testUser(), 1, 42)
	if err != nil {
		t.Fatalf("BookSeat: %v", err)
	}
	if id != 100 {
		t.Fatalf("booking id = %d, want 100", id)
	}
	ttl := h.store.gotExpiresAt.Sub(start)
	if ttl < 110*time.Second || ttl > 130*time.Second {
		t.Fatalf("hold deadline %s from now, want ~2m", ttl)
	}
	if got := h.audit.last(); got.Action != model.ActionBookOK {
		t.Fatalf("audit action = %s, want BOOK_OK", got.Action)
	}
}

func TestBookSeatBlockedByFraud(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.counter.counts["email:alice@example.com:"+model.ActionLoginFail] = 3

	_, err := h.svc.BookSeat(context.Background(), testUser(), 1, 42)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if blocked.Score < 3 {
		t.Fatalf("score = %d, want >= 3", blocked.Score)
	}
	if got := h.audit.last(); got.Action != model.ActionBookBlocked {
		t.Fatalf("audit action = %s, want BOOK_BLOCKED", got.Action)
	}
}

func TestBookSeatNilUserBlocked(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	_, err := h.svc.BookSeat(context.Background(), nil, 1, 42)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if got := h.audit.last(); got.UserID != nil {
		t.Fatal("anonymous block must audit without a user id")
	}
}

func TestBookSeatPermanentSeatBlock(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.counter.counts["user:7:"+model.SeatExpiredAction(42)] = 3

	_, err := h.svc.BookSeat(context.Background(), testUser(), 1, 42)
	if !errors.Is(err, repository.ErrSeatBlocked) {
		t.Fatalf("err = %v, want ErrSeatBlocked", err)
	}
	// The block is per seat; another seat books fine.
	if _, err := h.svc.BookSeat(context.Background(), testUser(), 1, 43); err != nil {
		t.Fatalf("other seat: %v", err)
	}
}

func TestBookSeatRaceLostAudited(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.store.bookSeatErr = repository.ErrSeatUnavailable

	_, err := h.svc.BookSeat(context.Background(), testUser(), 1, 42)
	if !errors.Is(err, repository.ErrSeatUnavailable) {
		t.Fatalf("err = %v, want ErrSeatUnavailable", err)
	}
	if got := h.audit.last(); got.Action != model.ActionBookFail {
		t.Fatalf("audit action = %s, want BOOK_FAIL", got.Action)
	}
}

// ---- payment ----

func TestPaySuccess(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	user := testUser()

	if err := h.svc.Pay(context.Background(), user, 100); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if !h.payments.created {
		t.Fatal("payment row was not created")
	}
	if h.payments.completedWith != "FAKE-CAPTURE-1" {
		t.Fatalf("capture id = %q", h.payments.completedWith)
	}
	if got := h.audit.last(); got.Action != model.ActionPayOK {
		t.Fatalf("audit action = %s, want PAY_OK", got.Action)
	}
	if len(h.pub.paid) != 1 {
		t.Fatalf("published %d paid events, want 1", len(h.pub.paid))
	}
	if evt := h.pub.paid[0]; evt.BookingID != 100 || evt.AmountCents != 2500 {
		t.Fatalf("event = %+v", evt)
	}
}

func TestPayDeclined(t *testing.T) {
	h := newHarness(fakeProvider{approved: false, declined: "insufficient funds"})

	err := h.svc.Pay(context.Background(), testUser(), 100)
	if !errors.Is(err, repository.ErrPaymentDeclined) {
		t.Fatalf("err = %v, want ErrPaymentDeclined", err)
	}
	if !strings.Contains(h.payments.failedWith, "insufficient funds") {
		t.Fatalf("fail reason = %q", h.payments.failedWith)
	}
	if got := h.audit.last(); got.Action != model.ActionPayFail {
		t.Fatalf("audit action = %s, want PAY_FAIL", got.Action)
	}
	if len(h.pub.paid) != 0 {
		t.Fatal("declined payment must not publish")
	}
}

func TestPayHoldExpired(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.store.settleErr = repository.ErrHoldExpired

	err := h.svc.Pay(context.Background(), testUser(), 100)
	if !errors.Is(err, repository.ErrHoldExpired) {
		t.Fatalf("err = %v, want ErrHoldExpired", err)
	}
	if !strings.Contains(h.payments.failedWith, "hold expired") {
		t.Fatalf("fail reason = %q", h.payments.failedWith)
	}
	if h.payments.completedWith != "" {
		t.Fatal("expired settlement must not complete the payment")
	}
}

func TestPayBlockedByFraud(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.counter.counts["email:alice@example.com:"+model.ActionLoginFail] = 5

	err := h.svc.Pay(context.Background(), testUser(), 100)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if h.payments.created {
		t.Fatal("blocked payment must not reach the provider")
	}
	if got := h.audit.last(); got.Action != model.ActionPayBlocked {
		t.Fatalf("audit action = %s, want PAY_BLOCKED", got.Action)
	}
}

// ---- cancel and sweep ----

func TestCancelPassesThroughErrors(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.store.cancelErr = repository.ErrAlreadyCancelled

	err := h.svc.Cancel(context.Background(), 7, 100)
	if !errors.Is(err, repository.ErrAlreadyCancelled) {
		t.Fatalf("err = %v, want ErrAlreadyCancelled", err)
	}
	if len(h.audit.entries) != 0 {
		t.Fatal("cancel must not write audit entries")
	}
}

func TestSeatsForEventAuditsExpiredHolds(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.seats.seats = []model.SeatInfo{{SeatID: 42, Label: "A-B3", PriceCents: 2500, State: model.SeatAvailable}}
	h.seats.expired = []repository.ExpiredHold{
		{EventID: 1, SeatID: 42, UserID: 7},
		{EventID: 1, SeatID: 43, UserID: 0}, // holder unknown, skip audit
	}

	seats, err := h.svc.SeatsForEvent(context.Background(), 1)
	if err != nil {
		t.Fatalf("SeatsForEvent: %v", err)
	}
	if len(seats) != 1 {
		t.Fatalf("got %d seats, want 1", len(seats))
	}
	if len(h.audit.entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(h.audit.entries))
	}
	if got := h.audit.entries[0]; got.Action != model.SeatExpiredAction(42) || *got.UserID != 7 {
		t.Fatalf("audit = %+v", got)
	}
	if len(h.pub.expired) != 1 || len(h.pub.expired[0].Seats) != 2 {
		t.Fatalf("expired events = %+v", h.pub.expired)
	}
}

func TestSeatsForEventNoExpiredNoNoise(t *testing.T) {
	h := newHarness(fakeProvider{approved: true})
	h.seats.seats = []model.SeatInfo{{SeatID: 1, Label: "A-A1", State: model.SeatHeld}}

	if _, err := h.svc.SeatsForEvent(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(h.audit.entries) != 0 || len(h.pub.expired) != 0 {
		t.Fatal("clean sweep must not audit or publish")
	}
}
