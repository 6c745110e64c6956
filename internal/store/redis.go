package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"resumescan/internal/config"
	"resumescan/internal/errors"
)

// Redis wraps the go-redis client used for sessions and invalidation fan-out
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis and verifies connectivity
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *errors.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid redis URL", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Failed to ping redis", err)
	}

	logger.Info("Redis connection established", "pool_size", cfg.PoolSize)

	return &Redis{Client: client}, nil
}

// Close closes the client connection pool
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping verifies Redis is reachable
func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreUnavailable, "Redis ping failed", err)
	}
	return nil
}
