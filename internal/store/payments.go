package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// PaymentRepository provides access to manual payment claims
type PaymentRepository interface {
	Insert(ctx context.Context, payment *types.PaymentRecord) error
	// LatestPendingByUser returns the user's most recent unverified claim.
	// Returns ErrCodeNoPendingPayment when there is none.
	LatestPendingByUser(ctx context.Context, userID string) (*types.PaymentRecord, error)
	// MarkVerified flips verified=false to true for the given claim.
	// Returns ErrCodeAlreadyVerified when the claim was verified already,
	// so a second verification can never take effect twice.
	MarkVerified(ctx context.Context, id, adminEmail string, at time.Time) error
	ListPending(ctx context.Context, limit, offset int) ([]types.PaymentRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]types.PaymentRecord, error)
}

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a payment repository over a database or transaction
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Insert(ctx context.Context, payment *types.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (id, user_id, contact_email, phone_number, mpesa_code, payment_date, verified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.ContactEmail,
		payment.PhoneNumber,
		payment.MpesaCode,
		payment.PaymentDate,
	)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to insert payment claim", err)
	}

	return nil
}

func (r *paymentRepository) LatestPendingByUser(ctx context.Context, userID string) (*types.PaymentRecord, error) {
	query := `
		SELECT id, user_id, contact_email, phone_number, mpesa_code, payment_date, verified, verified_by, verified_at
		FROM payment_records
		WHERE user_id = $1 AND verified = FALSE
		ORDER BY payment_date DESC
		LIMIT 1`

	var payment types.PaymentRecord
	err := r.db.GetContext(ctx, &payment, query, userID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewPaymentError(errors.ErrCodeNoPendingPayment, "No pending payment found", err)
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to get pending payment", err)
	}

	return &payment, nil
}

func (r *paymentRepository) MarkVerified(ctx context.Context, id, adminEmail string, at time.Time) error {
	// The verified=FALSE guard makes verification idempotent: a concurrent
	// or repeated verify matches zero rows instead of extending twice.
	query := `
		UPDATE payment_records
		SET verified = TRUE, verified_by = $2, verified_at = $3
		WHERE id = $1 AND verified = FALSE`

	result, err := r.db.ExecContext(ctx, query, id, adminEmail, at)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to verify payment", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to verify payment", err)
	}
	if rows == 0 {
		return errors.NewPaymentError(errors.ErrCodeAlreadyVerified, "Payment was already verified", nil)
	}

	return nil
}

func (r *paymentRepository) ListPending(ctx context.Context, limit, offset int) ([]types.PaymentRecord, error) {
	query := `
		SELECT id, user_id, contact_email, phone_number, mpesa_code, payment_date, verified, verified_by, verified_at
		FROM payment_records
		WHERE verified = FALSE
		ORDER BY payment_date DESC
		LIMIT $1 OFFSET $2`

	payments := []types.PaymentRecord{}
	if err := r.db.SelectContext(ctx, &payments, query, limit, offset); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to list pending payments", err)
	}

	return payments, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]types.PaymentRecord, error) {
	query := `
		SELECT id, user_id, contact_email, phone_number, mpesa_code, payment_date, verified, verified_by, verified_at
		FROM payment_records
		WHERE user_id = $1
		ORDER BY payment_date DESC
		LIMIT $2 OFFSET $3`

	payments := []types.PaymentRecord{}
	if err := r.db.SelectContext(ctx, &payments, query, userID, limit, offset); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to list payments", err)
	}

	return payments, nil
}
