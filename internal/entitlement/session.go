package entitlement

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

const (
	channelPrefix  = "entitlement:"
	channelPattern = channelPrefix + "*"

	// snapshotMaxAge bounds staleness even if an invalidation message
	// is lost while the subscriber reconnects
	snapshotMaxAge = 5 * time.Minute
)

type cachedSnapshot struct {
	ent       types.Entitlement
	fetchedAt time.Time
}

// SessionCache memoizes entitlement snapshots per user for display paths.
// A Redis pub/sub message on entitlement:<userID> drops the user's cached
// snapshot, so a verified payment becomes visible without a new login.
// Gated actions must use Fresh, which always bypasses the cache.
type SessionCache struct {
	evaluator *Evaluator
	redis     *redis.Client
	logger    *errors.Logger

	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot
	now       func() time.Time
}

// NewSessionCache creates the session snapshot cache
func NewSessionCache(evaluator *Evaluator, redisClient *redis.Client, logger *errors.Logger) *SessionCache {
	return &SessionCache{
		evaluator: evaluator,
		redis:     redisClient,
		logger:    logger,
		snapshots: make(map[string]cachedSnapshot),
		now:       time.Now,
	}
}

// Snapshot returns the cached entitlement for display purposes, refreshing
// it when absent or older than snapshotMaxAge.
func (c *SessionCache) Snapshot(ctx context.Context, userID string) types.Entitlement {
	c.mu.RLock()
	cached, ok := c.snapshots[userID]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.fetchedAt) < snapshotMaxAge {
		return cached.ent
	}

	return c.Fresh(ctx, userID)
}

// Fresh re-evaluates the entitlement from the store, bypassing the cache,
// and updates the cached snapshot. Quota-gated actions must use this.
func (c *SessionCache) Fresh(ctx context.Context, userID string) types.Entitlement {
	ent := c.evaluator.Evaluate(ctx, userID)

	c.mu.Lock()
	c.snapshots[userID] = cachedSnapshot{ent: ent, fetchedAt: c.now()}
	c.mu.Unlock()

	return ent
}

// Invalidate drops the cached snapshot for a user
func (c *SessionCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.snapshots, userID)
	c.mu.Unlock()
}

// Forget removes a user on logout
func (c *SessionCache) Forget(userID string) {
	c.Invalidate(userID)
}

// NotifyChange publishes an entitlement change for a user so every server
// instance drops its cached snapshot. Called after payment verification
// and subscription changes.
func (c *SessionCache) NotifyChange(ctx context.Context, userID string) {
	if err := c.redis.Publish(ctx, channelPrefix+userID, "changed").Err(); err != nil {
		// The cache self-heals via snapshotMaxAge; log and move on
		c.logger.LogError(err, "Failed to publish entitlement change", "user_id", userID)
	}
}

// Listen subscribes to entitlement change notifications and invalidates
// snapshots until ctx is cancelled. Run it in its own goroutine.
func (c *SessionCache) Listen(ctx context.Context) {
	pubsub := c.redis.PSubscribe(ctx, channelPattern)
	defer func() { _ = pubsub.Close() }()

	c.logger.Info("Entitlement invalidation listener started", "pattern", channelPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Entitlement invalidation listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				c.logger.Warn("Entitlement invalidation channel closed")
				return
			}
			userID := strings.TrimPrefix(msg.Channel, channelPrefix)
			c.Invalidate(userID)
			c.logger.Debug("Entitlement snapshot invalidated", "user_id", userID)
		}
	}
}
