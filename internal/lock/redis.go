package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token so an
// expired lease can never release a lock taken over by another process.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a Locker backed by SET NX PX.  Each acquisition stores a
// random token with a lease; the lease bounds how long a crashed holder
// can block the key.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	lease  time.Duration
	poll   time.Duration
}

// NewRedisLocker returns a RedisLocker.  lease must exceed the longest
// protected section.
func NewRedisLocker(rdb *redis.Client, prefix string, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, lease: lease, poll: 25 * time.Millisecond}
}

// WithExclusiveAccess implements Locker.
func (l *RedisLocker) WithExclusiveAccess(ctx context.Context, key string, timeout time.Duration, fn func(ctx context.Context) error) error {
	rkey := l.prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, l.lease).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ErrTimeout, key)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer func() {
		// release with a fresh context so a cancelled request still frees the key
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{rkey}, token).Err()
	}()

	return fn(ctx)
}
