// Package cache provides an optional Redis-backed cache for computed day
// availability. When no Redis URL is configured the noop implementation is
// used and every lookup falls through to the calculator.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SlotCache stores the available slot list for a doctor on a given date.
// Keys are derived from the doctor id and the date string ("2006-01-02").
// Invalidate must be called whenever an appointment for the doctor is
// created, moved, or cancelled.
type SlotCache interface {
	Get(ctx context.Context, doctorID, date string) ([]string, bool)
	Set(ctx context.Context, doctorID, date string, slots []string)
	Invalidate(ctx context.Context, doctorID string)
}

func slotKey(doctorID, date string) string {
	return fmt.Sprintf("slots:%s:%s", doctorID, date)
}

func doctorPattern(doctorID string) string {
	return fmt.Sprintf("slots:%s:*", doctorID)
}

// RedisCache caches slot lists in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCache connects to Redis using the given URL and verifies the
// connection with a ping.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger zerolog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, doctorID, date string) ([]string, bool) {
	raw, err := c.client.Get(ctx, slotKey(doctorID, date)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("slot cache read failed")
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *RedisCache) Set(ctx context.Context, doctorID, date string, slots []string) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slotKey(doctorID, date), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("slot cache write failed")
	}
}

// Invalidate drops every cached date for the doctor. A booking at one time
// changes availability for that date only, but dates are cheap to recompute
// and a per-doctor sweep keeps the invalidation logic simple.
func (c *RedisCache) Invalidate(ctx context.Context, doctorID string) {
	iter := c.client.Scan(ctx, 0, doctorPattern(doctorID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("slot cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("slot cache invalidation failed")
		}
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache satisfies SlotCache without storing anything.
type NoopCache struct{}

func NewNoopCache() NoopCache { return NoopCache{} }

func (NoopCache) Get(ctx context.Context, doctorID, date string) ([]string, bool) { return nil, false }
func (NoopCache) Set(ctx context.Context, doctorID, date string, slots []string)  {}
func (NoopCache) Invalidate(ctx context.Context, doctorID string)                 {}
