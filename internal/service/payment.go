package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// CaptureResult is the provider's answer to a capture attempt.
type CaptureResult struct {
	Approved  bool
	CaptureID string
	Reason    string
}

// PaymentProvider is the external charge gateway the booking service
// settles through. CreateOrder registers the intent to charge and
// returns the provider's order reference; Capture executes the charge.
// A declined capture comes back Approved=false with a reason, not an
// error; errors mean the provider could not be reached.
type PaymentProvider interface {
	Name() string
	CreateOrder(ctx context.Context, bookingID uint64, amountCents uint32) (string, error)
	Capture(ctx context.Context, orderID string) (CaptureResult, error)
}

// MockProvider approves every charge. It stands in for a real gateway
// in development and tests, producing MOCK-prefixed references shaped
// like real provider ids.
type MockProvider struct{}

// NewMockProvider returns the always-approving provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

// Name identifies the provider in payment rows.
func (MockProvider) Name() string { return "MOCK" }

// CreateOrder issues a fresh MOCK order reference.
func (MockProvider) CreateOrder(_ context.Context, _ uint64, _ uint32) (string, error) {
	return "MOCK-ORDER-" + randomRef(), nil
}

// Capture approves the order unconditionally.
func (MockProvider) Capture(_ context.Context, orderID string) (CaptureResult, error) {
	return CaptureResult{Approved: true, CaptureID: "MOCK-CAPTURE-" + randomRef()}, nil
}

func randomRef() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// rand.Read failing means the platform entropy source is gone;
		// a constant ref keeps the mock usable anyway.
		return fmt.Sprintf("%016x", 0)
	}
	return hex.EncodeToString(b[:])
}
