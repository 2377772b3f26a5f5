package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out short-lived cross-process locks backed by SET NX PX.
type Locker struct {
	client redis.Scripter
	setter redis.Cmdable
}

// NewLocker builds a locker on the given client.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, setter: client}
}

// TryAcquire attempts to take key for ttl. When acquired is false another
// holder owns the lock and release is a no-op.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	token := uuid.NewString()
	acquired, err = l.setter.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return func(context.Context) error { return nil }, false, err
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
