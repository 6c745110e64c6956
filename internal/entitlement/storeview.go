package entitlement

import (
	"context"
	"time"

	"resumescan/internal/store"
	"resumescan/internal/types"
)

// repoView adapts the scan and subscription repositories to StoreView
type repoView struct {
	scans store.ScanRepository
	subs  store.SubscriptionRepository
}

// NewStoreView builds a StoreView over the concrete repositories
func NewStoreView(scans store.ScanRepository, subs store.SubscriptionRepository) StoreView {
	return &repoView{scans: scans, subs: subs}
}

func (v *repoView) CountScans(ctx context.Context, userID string) (int, error) {
	return v.scans.CountByUser(ctx, userID)
}

func (v *repoView) ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error) {
	return v.subs.ActiveForUser(ctx, userID, now)
}
