package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "dedupe"

// RedisDeduper stores idempotency keys in Redis so repeated assignment
// requests and repeated meeting syncs are applied once across instances.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, key string) string {
	return fmt.Sprintf("%s:%s:%s", userID, dedupeKeyPrefix, key)
}

func assignKey(key string) string {
	return "assign:" + key
}

// syncItemKey identifies one action item of a meeting on one board.
func syncItemKey(meetingID string, index int, boardID string) string {
	return fmt.Sprintf("sync:%s:%d:%s", meetingID, index, boardID)
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, userID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key so a failed request can be retried.
func (r *RedisDeduper) Remove(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, r.key(userID, key)).Err()
}

// AddMany records every key in one pipeline round trip and reports which
// were new. On error the result still marks each key whose SETNX went
// through, so the caller can remove them again.
func (r *RedisDeduper) AddMany(ctx context.Context, userID string, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := r.client.Pipeline()
	setnx := make([]*redis.BoolCmd, len(keys))
	for i, k := range keys {
		setnx[i] = pipe.SetNX(ctx, r.key(userID, k), 1, r.ttl)
	}
	_, execErr := pipe.Exec(ctx)

	fresh := make([]bool, len(keys))
	for i, cmd := range setnx {
		fresh[i] = cmd.Err() == nil && cmd.Val()
	}
	if execErr != nil {
		return fresh, fmt.Errorf("dedupe %d keys: %w", len(keys), execErr)
	}
	return fresh, nil
}
