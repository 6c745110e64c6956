package entitlement

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelError)

type fakeStoreView struct {
	scanCount int
	scanErr   error
	sub       *types.Subscription
	subErr    error
}

func (f *fakeStoreView) CountScans(ctx context.Context, userID string) (int, error) {
	return f.scanCount, f.scanErr
}

func (f *fakeStoreView) ActiveSubscription(ctx context.Context, userID string, now time.Time) (*types.Subscription, error) {
	return f.sub, f.subErr
}

func testEntitlementConfig() config.EntitlementConfig {
	return config.EntitlementConfig{
		FreeScanLimit:        3,
		PremiumScanLimit:     15,
		SubscriptionDuration: 7 * 24 * time.Hour,
	}
}

func newTestEvaluator(view StoreView) *Evaluator {
	return NewEvaluator(view, testEntitlementConfig(), testLogger)
}

func activeSub(now time.Time, until time.Duration) *types.Subscription {
	return &types.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(until),
		Active:    true,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		view          *fakeStoreView
		wantTier      string
		wantLimit     int
		wantRemaining int
		wantSub       bool
	}{
		{
			name:          "free tier with no scans",
			view:          &fakeStoreView{scanCount: 0},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 3,
		},
		{
			name:          "free tier partially consumed",
			view:          &fakeStoreView{scanCount: 2},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 1,
		},
		{
			name:          "free tier exhausted",
			view:          &fakeStoreView{scanCount: 3},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 0,
		},
		{
			name:          "free tier over limit never goes negative",
			view:          &fakeStoreView{scanCount: 7},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 0,
		},
		{
			name:          "premium tier with active subscription",
			view:          &fakeStoreView{scanCount: 4, sub: activeSub(now, 48 * time.Hour)},
			wantTier:      types.TierPremium,
			wantLimit:     15,
			wantRemaining: 11,
			wantSub:       true,
		},
		{
			name: "expired subscription falls back to free",
			view: &fakeStoreView{scanCount: 1, sub: &types.Subscription{
				ID:        "sub-2",
				UserID:    "user-1",
				StartDate: now.Add(-14 * 24 * time.Hour),
				EndDate:   now.Add(-7 * 24 * time.Hour),
				Active:    true,
			}},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 2,
		},
		{
			name: "inactive subscription ignored",
			view: &fakeStoreView{scanCount: 0, sub: &types.Subscription{
				ID:        "sub-3",
				UserID:    "user-1",
				StartDate: now.Add(-24 * time.Hour),
				EndDate:   now.Add(48 * time.Hour),
				Active:    false,
			}},
			wantTier:      types.TierFree,
			wantLimit:     3,
			wantRemaining: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(tt.view)
			ent := e.Evaluate(context.Background(), "user-1")

			if ent.Tier != tt.wantTier {
				t.Errorf("Tier = %q, want %q", ent.Tier, tt.wantTier)
			}
			if ent.ScanLimit != tt.wantLimit {
				t.Errorf("ScanLimit = %d, want %d", ent.ScanLimit, tt.wantLimit)
			}
			if ent.RemainingScans != tt.wantRemaining {
				t.Errorf("RemainingScans = %d, want %d", ent.RemainingScans, tt.wantRemaining)
			}
			if ent.HasSubscription != tt.wantSub {
				t.Errorf("HasSubscription = %v, want %v", ent.HasSubscription, tt.wantSub)
			}
		})
	}
}

func TestEvaluateFailsClosed(t *testing.T) {
	storeErr := errors.NewStoreError(errors.ErrCodeStoreUnavailable, "store down", nil)

	t.Run("scan count error yields zero remaining", func(t *testing.T) {
		e := newTestEvaluator(&fakeStoreView{scanErr: storeErr})
		ent := e.Evaluate(context.Background(), "user-1")

		if ent.RemainingScans != 0 {
			t.Errorf("RemainingScans = %d, want 0 on store error", ent.RemainingScans)
		}
	})

	t.Run("subscription error yields free tier", func(t *testing.T) {
		e := newTestEvaluator(&fakeStoreView{scanCount: 0, subErr: storeErr})
		ent := e.Evaluate(context.Background(), "user-1")

		if ent.HasSubscription {
			t.Error("HasSubscription should be false when the lookup errors")
		}
		if ent.Tier != types.TierFree {
			t.Errorf("Tier = %q, want free on store error", ent.Tier)
		}
	})

	t.Run("both failing grants nothing", func(t *testing.T) {
		e := newTestEvaluator(&fakeStoreView{scanErr: storeErr, subErr: storeErr})

		if got := e.RemainingScans(context.Background(), "user-1"); got != 0 {
			t.Errorf("RemainingScans = %d, want 0", got)
		}
		if e.HasActiveSubscription(context.Background(), "user-1") {
			t.Error("HasActiveSubscription should be false")
		}
		if _, ok := e.SubscriptionEndDate(context.Background(), "user-1"); ok {
			t.Error("SubscriptionEndDate should be absent")
		}
	})
}

func TestSubscriptionEndDate(t *testing.T) {
	now := time.Now()
	end := now.Add(72 * time.Hour)

	e := newTestEvaluator(&fakeStoreView{sub: &types.Subscription{
		ID:        "sub-1",
		UserID:    "user-1",
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   end,
		Active:    true,
	}})

	got, ok := e.SubscriptionEndDate(context.Background(), "user-1")
	if !ok {
		t.Fatal("Expected a subscription end date")
	}
	if !got.Equal(end) {
		t.Errorf("SubscriptionEndDate = %v, want %v", got, end)
	}
}
