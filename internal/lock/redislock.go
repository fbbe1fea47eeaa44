package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL      = 30 * time.Second
	defaultRetryBackoff = 50 * time.Millisecond
)

// Locker provides a Redis-backed distributed lock. Returns are serialized
// per origin document through this lock so two concurrent returns cannot
// both pass the cumulative-quantity check before either commits.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// ReturnKey is the lock key guarding all returns against one origin bill or
// purchase voucher.
func ReturnKey(kind string, originID uuid.UUID) string {
	return "lock:return:" + kind + ":" + originID.String()
}

// WithLock runs fn while holding the lock named by key, polling until the
// lock is acquired or ctx is cancelled. The lock is released afterwards even
// when fn returns an error.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	token := uuid.NewString()
	for {
		acquired, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
	defer l.release(context.Background(), key, token)
	return fn(ctx)
}

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// release drops the lock only if the token still matches, so an expired lock
// taken over by another holder is never deleted from under them.
func (l Locker) release(ctx context.Context, key, token string) {
	err := releaseScript.Run(ctx, l.R, []string{key}, token).Err()
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	// redis stand-ins without scripting get a plain delete
	if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
		_ = l.R.Del(ctx, key).Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
