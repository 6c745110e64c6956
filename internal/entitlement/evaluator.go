package entitlement

import (
	"context"
	"time"

	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// StoreView is the read-only slice of the store the evaluator needs
type StoreView interface {
	CountScans(ctx context.Context, userID string) (int, error)
	ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error)
}

// Evaluator derives a user's current entitlement from the store.
// Every accessor fails closed: a store error yields zero remaining scans
// and no subscription, logged but never surfaced as a grant.
type Evaluator struct {
	store  StoreView
	cfg    config.EntitlementConfig
	logger *errors.Logger
	now    func() time.Time
}

// NewEvaluator creates an entitlement evaluator
func NewEvaluator(store StoreView, cfg config.EntitlementConfig, logger *errors.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Evaluate computes the full entitlement snapshot for a user
func (e *Evaluator) Evaluate(ctx context.Context, userID string) types.Entitlement {
	now := e.now()

	ent := types.Entitlement{
		Tier:      types.TierFree,
		ScanLimit: e.cfg.FreeScanLimit,
	}

	sub, err := e.store.ActiveSubscription(ctx, userID, now)
	if err != nil {
		e.logger.LogError(err, "Entitlement subscription lookup failed, treating as free tier", "user_id", userID)
	} else if sub != nil && sub.ActiveAt(now) {
		ent.Tier = types.TierPremium
		ent.ScanLimit = e.cfg.PremiumScanLimit
		ent.HasSubscription = true
		endDate := sub.EndDate
		ent.SubscriptionEndDate = &endDate
	}

	used, err := e.store.CountScans(ctx, userID)
	if err != nil {
		e.logger.LogError(err, "Entitlement scan count failed, treating quota as exhausted", "user_id", userID)
		ent.RemainingScans = 0
		return ent
	}

	ent.RemainingScans = max(0, ent.ScanLimit-used)
	return ent
}

// RemainingScans returns how many scans the user may still run
func (e *Evaluator) RemainingScans(ctx context.Context, userID string) int {
	return e.Evaluate(ctx, userID).RemainingScans
}

// HasActiveSubscription reports whether the user holds an unexpired subscription
func (e *Evaluator) HasActiveSubscription(ctx context.Context, userID string) bool {
	return e.Evaluate(ctx, userID).HasSubscription
}

// SubscriptionEndDate returns the subscription end date, if any
func (e *Evaluator) SubscriptionEndDate(ctx context.Context, userID string) (time.Time, bool) {
	ent := e.Evaluate(ctx, userID)
	if ent.SubscriptionEndDate == nil {
		return time.Time{}, false
	}
	return *ent.SubscriptionEndDate, true
}

// ScanLimit returns the effective scan limit for the user's current tier
func (e *Evaluator) ScanLimit(ctx context.Context, userID string) int {
	return e.Evaluate(ctx, userID).ScanLimit
}
