// Package idempotency remembers which gateway webhook events were already applied.
// It is an optimisation in front of the lifecycle rules, which are idempotent on their own.
package idempotency

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

const keyPrefix = "webhook:event:"

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, key string) error {
	return s.rdb.SetNX(ctx, keyPrefix+key, 1, s.ttl).Err()
}

type CacheStore struct {
	cache *cache.Cache
}

func NewCacheStore(ttl time.Duration) *CacheStore {
	return &CacheStore{cache: cache.New(ttl, ttl/2+time.Minute)}
}

func (s *CacheStore) Seen(ctx context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}

func (s *CacheStore) Mark(ctx context.Context, key string) error {
	s.cache.SetDefault(key, struct{}{})
	return nil
}

// FallbackStore prefers the shared store and degrades to the local one when it errors,
// so a Redis outage never blocks webhook processing.
type FallbackStore struct {
	primary  Store
	fallback Store
	onError  func(op string, err error)
}

func NewFallbackStore(primary, fallback Store, onError func(op string, err error)) *FallbackStore {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &FallbackStore{primary: primary, fallback: fallback, onError: onError}
}

func (s *FallbackStore) Seen(ctx context.Context, key string) (bool, error) {
	seen, err := s.primary.Seen(ctx, key)
	if err == nil {
		if seen {
			return true, nil
		}
		return s.fallback.Seen(ctx, key)
	}
	s.onError("seen", err)
	return s.fallback.Seen(ctx, key)
}

func (s *FallbackStore) Mark(ctx context.Context, key string) error {
	errFallback := s.fallback.Mark(ctx, key)
	if err := s.primary.Mark(ctx, key); err != nil {
		s.onError("mark", err)
		return errFallback
	}
	return errFallback
}
