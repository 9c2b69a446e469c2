package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by this token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointing at the same Redis.
// A lock expires after ttl even if its holder never releases it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

func NewRedis(client *redis.Client, ttl, wait time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		wait:   wait,
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		locked, err := l.client.SetNX(waitCtx, lockKey, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if locked {
			break
		}

		select {
		case <-waitCtx.Done():
			// The deadline may come from l.wait or from the caller.
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, waitCtx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled; release regardless.
			releaseScript.Run(context.Background(), l.client, []string{lockKey}, token)
		})
	}, nil
}
