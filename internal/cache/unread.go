package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const unreadKeyPrefix = "notifications:unread:"

// UnreadCounter caches per-user unread notification counts in Redis.
type UnreadCounter struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewUnreadCounter builds a counter cache; ttl bounds staleness after a missed invalidation.
func NewUnreadCounter(client redis.Cmdable, ttl time.Duration) *UnreadCounter {
	return &UnreadCounter{client: client, ttl: ttl}
}

// Get returns the cached count. ok is false on a cache miss.
func (u *UnreadCounter) Get(ctx context.Context, userID string) (count int64, ok bool, err error) {
	raw, err := u.client.Get(ctx, unreadKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Set stores a freshly computed count.
func (u *UnreadCounter) Set(ctx context.Context, userID string, count int64) error {
	return u.client.Set(ctx, unreadKey(userID), count, u.ttl).Err()
}

// Invalidate drops the cached count so the next read recomputes it.
func (u *UnreadCounter) Invalidate(ctx context.Context, userID string) error {
	return u.client.Del(ctx, unreadKey(userID)).Err()
}

func unreadKey(userID string) string {
	return unreadKeyPrefix + userID
}
