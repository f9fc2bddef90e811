package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisRetryInterval = 50 * time.Millisecond

// RedisLock is a Locker shared by every process talking to the same Redis. Run extends
// held keys every ttl/2, so ttl only bounds how long a crashed holder blocks others.
type RedisLock struct {
	ttl   time.Duration
	retry redislock.RetryStrategy
	cli   *redislock.Client
}

// NewRedisLock creates a lock that expires after ttl if its holder dies and retries for
// at most wait before giving up.
func NewRedisLock(cli *redis.Client, ttl, wait time.Duration) *RedisLock {
	retry := redislock.NoRetry()
	if attempts := int(wait / redisRetryInterval); attempts > 0 {
		retry = redislock.LimitRetry(redislock.LinearBackoff(redisRetryInterval), attempts)
	}
	return &RedisLock{cli: redislock.New(cli), ttl: ttl, retry: retry}
}

func (r *RedisLock) Lock(ctx context.Context, key string) (interface{}, error) {
	l, err := r.cli.Obtain(ctx, key, r.ttl, &redislock.Options{RetryStrategy: r.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}
	return l, nil
}

func (r *RedisLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l, ok := keyLock.(*redislock.Lock)
	if !ok {
		return fmt.Errorf("unexpected lock handle %T", keyLock)
	}
	return l.Release(ctx)
}

var _ Refresher = (*RedisLock)(nil)

func (r *RedisLock) Refresh(ctx context.Context, keyLock interface{}) error {
	l, ok := keyLock.(*redislock.Lock)
	if !ok {
		return fmt.Errorf("unexpected lock handle %T", keyLock)
	}
	if err := l.Refresh(ctx, r.ttl, nil); err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return fmt.Errorf("%w: %s", ErrLockLost, l.Key())
		}
		return fmt.Errorf("refresh redis lock %s: %w", l.Key(), err)
	}
	return nil
}

func (r *RedisLock) RefreshInterval() time.Duration {
	return r.ttl / 2
}
