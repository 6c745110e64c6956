package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// SubscriptionRepository provides access to subscription windows
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *types.Subscription) error
	// ActiveForUser returns the active subscription whose window covers
	// now, or nil when the user has none.
	ActiveForUser(ctx context.Context, userID string, now time.Time) (*types.Subscription, error)
	// ExtendEnd pushes the end date of an existing subscription forward
	ExtendEnd(ctx context.Context, id string, newEnd time.Time) error
}

type subscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository creates a subscription repository over a database or transaction
func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *types.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.StartDate,
		sub.EndDate,
		sub.Active,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to create subscription", err)
	}

	return nil
}

func (r *subscriptionRepository) ActiveForUser(ctx context.Context, userID string, now time.Time) (*types.Subscription, error) {
	query := `
		SELECT id, user_id, start_date, end_date, active, created_at
		FROM subscriptions
		WHERE user_id = $1 AND active = TRUE AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1`

	var sub types.Subscription
	err := r.db.GetContext(ctx, &sub, query, userID, now)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to get active subscription", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) ExtendEnd(ctx context.Context, id string, newEnd time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET end_date = $2, active = TRUE WHERE id = $1`, id, newEnd)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to extend subscription", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to extend subscription", err)
	}
	if rows == 0 {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Subscription not found", nil)
	}

	return nil
}
