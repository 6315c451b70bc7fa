package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the conversation sliding windows and the persisted
// lexical ranker models. Both are treated as caches with TTL, never as the
// system of record.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 10 * time.Second,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func chatKey(userID, chatID string) string {
	return fmt.Sprintf("chat:%s:%s", userID, chatID)
}

func rankerKey(userID string) string {
	return fmt.Sprintf("ranker:%s", userID)
}

// PushTurn prepends a serialized turn to the conversation window, trims the
// window to maxLen entries and refreshes the whole window's TTL.
func (c *RedisCache) PushTurn(ctx context.Context, userID, chatID string, payload []byte, maxLen int64, ttl time.Duration) error {
	key := chatKey(userID, chatID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, maxLen-1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push turn to %s: %w", key, err)
	}
	return nil
}

// RecentTurns returns up to limit serialized turns, newest first. A missing
// window yields an empty slice, not an error.
func (c *RedisCache) RecentTurns(ctx context.Context, userID, chatID string, limit int64) ([][]byte, error) {
	key := chatKey(userID, chatID)
	vals, err := c.rdb.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read turns from %s: %w", key, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// GetModel returns the persisted ranker model bytes for the user, or
// (nil, nil) if the entry was evicted or never written.
func (c *RedisCache) GetModel(ctx context.Context, userID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, rankerKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ranker model for %s: %w", userID, err)
	}
	return data, nil
}

// SetModel persists the ranker model bytes with a refreshed TTL.
func (c *RedisCache) SetModel(ctx context.Context, userID string, data []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, rankerKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to persist ranker model for %s: %w", userID, err)
	}
	return nil
}
