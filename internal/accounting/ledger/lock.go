package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

// RedisLocker implements Locker with redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker wraps a go-redis client. A non-positive ttl defaults to 30s.
func NewRedisLocker(client redislock.RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: redislock.New(client), ttl: ttl}
}

// Lock obtains key without retrying.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrPostingInProgress
		}
		return nil, err
	}
	return lock.Release, nil
}
