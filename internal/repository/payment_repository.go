package repository

import (
	"context"
	"database/sql"
)

// Payment status values stored in payments.status.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// PaymentRepo records the charge attempts made against bookings. A
// payment row is written PENDING before the provider is called, then
// marked COMPLETED or FAILED with the provider's reference. Rows are
// never deleted; a retried booking payment gets a fresh row.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a PENDING payment attempt and returns its id.
func (r *PaymentRepo) Create(ctx context.Context, bookingID uint64, provider, orderID string, amountCents uint32) (uint64, error) {
	const q = `INSERT INTO payments (booking_id, provider, provider_order_id, amount_cents, status)
	           VALUES (?, ?, ?, ?, 'PENDING')`
	res, err := r.db.ExecContext(ctx, q, bookingID, provider, orderID, amountCents)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// MarkCompleted flips a payment to COMPLETED with the provider's
// capture reference. Only PENDING rows transition.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, paymentID uint64, captureID string) error {
	const q = `UPDATE payments
	           SET status = 'COMPLETED', provider_capture_id = ?, completed_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = 'PENDING'`
	_, err := r.db.ExecContext(ctx, q, captureID, paymentID)
	return err
}

// MarkFailed flips a payment to FAILED with the decline reason. Only
// PENDING rows transition.
func (r *PaymentRepo) MarkFailed(ctx context.Context, paymentID uint64, reason string) error {
	const q = `UPDATE payments
	           SET status = 'FAILED', fail_reason = ?
	           WHERE id = ? AND status = 'PENDING'`
	_, err := r.db.ExecContext(ctx, q, reason, paymentID)
	return err
}
