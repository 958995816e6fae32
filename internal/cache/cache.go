// Package cache provides the key/value store behind dashboard caching and
// courier webhook de-duplication.
package cache

import (
	"context"
	"time"

	"baburchi-admin/internal/config"

	"go.uber.org/zap"
)

// Store is a byte-oriented cache with per-key TTL
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// New returns a Redis-backed store when enabled, otherwise an in-process one
func New(cfg config.RedisConfig, log *zap.Logger) (Store, error) {
	if !cfg.Enabled {
		log.Info("using in-memory cache")
		return NewMemoryStore(), nil
	}
	store, err := NewRedisStore(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("using redis cache", zap.String("addr", cfg.Addr()))
	return store, nil
}
