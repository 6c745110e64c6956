package entitlement

import (
	"context"
	"testing"
	"time"
)

func TestSessionCacheSnapshot(t *testing.T) {
	view := &fakeStoreView{scanCount: 1}
	cache := NewSessionCache(newTestEvaluator(view), nil, testLogger)

	ent := cache.Snapshot(context.Background(), "user-1")
	if ent.RemainingScans != 2 {
		t.Fatalf("RemainingScans = %d, want 2", ent.RemainingScans)
	}

	// The store changed, but the snapshot is memoized
	view.scanCount = 3
	ent = cache.Snapshot(context.Background(), "user-1")
	if ent.RemainingScans != 2 {
		t.Errorf("Cached RemainingScans = %d, want stale value 2", ent.RemainingScans)
	}

	// Invalidation forces a re-read
	cache.Invalidate("user-1")
	ent = cache.Snapshot(context.Background(), "user-1")
	if ent.RemainingScans != 0 {
		t.Errorf("RemainingScans after invalidation = %d, want 0", ent.RemainingScans)
	}
}

func TestSessionCacheFreshBypassesCache(t *testing.T) {
	view := &fakeStoreView{scanCount: 0}
	cache := NewSessionCache(newTestEvaluator(view), nil, testLogger)

	if ent := cache.Snapshot(context.Background(), "user-1"); ent.RemainingScans != 3 {
		t.Fatalf("RemainingScans = %d, want 3", ent.RemainingScans)
	}

	view.scanCount = 3

	// Fresh must see the store change even with a live cached snapshot
	if ent := cache.Fresh(context.Background(), "user-1"); ent.RemainingScans != 0 {
		t.Errorf("Fresh RemainingScans = %d, want 0", ent.RemainingScans)
	}

	// And it refreshes the snapshot for subsequent display reads
	if ent := cache.Snapshot(context.Background(), "user-1"); ent.RemainingScans != 0 {
		t.Errorf("Snapshot after Fresh = %d, want 0", ent.RemainingScans)
	}
}

func TestSessionCacheExpiresStaleSnapshots(t *testing.T) {
	view := &fakeStoreView{scanCount: 0}
	cache := NewSessionCache(newTestEvaluator(view), nil, testLogger)

	base := time.Now()
	cache.now = func() time.Time { return base }

	if ent := cache.Snapshot(context.Background(), "user-1"); ent.RemainingScans != 3 {
		t.Fatalf("RemainingScans = %d, want 3", ent.RemainingScans)
	}

	view.scanCount = 2
	cache.now = func() time.Time { return base.Add(snapshotMaxAge + time.Second) }

	if ent := cache.Snapshot(context.Background(), "user-1"); ent.RemainingScans != 1 {
		t.Errorf("RemainingScans after max age = %d, want refreshed value 1", ent.RemainingScans)
	}
}
