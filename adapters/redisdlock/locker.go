// Package redisdlock implements ports.DistributedLocker over Redis, for
// spec.md §5's "at most one active socket per instanceId" guarantee
// across horizontally-scaled host replicas.
package redisdlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/chronicals/sdk/pkg/ports"
)

var _ ports.DistributedLocker = (*Locker)(nil)

// Locker implements ports.DistributedLocker with SET NX PX and a
// value-checked Lua unlock so one instance can never release a lock a
// second instance has since acquired.
type Locker struct {
	client *backend.Client
	prefix string
	poll   time.Duration
}

// NewLocker builds a Locker over an existing Redis client. prefix
// namespaces lock keys, e.g. "hostsdk:" for the default instanceId
// locks spec.md §5 describes.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix, poll: 100 * time.Millisecond}
}

// Lock blocks, polling at l.poll, until it acquires the lock for key or
// ctx is done. The returned UnlockFunc only deletes the key if its
// value still matches what this call set, so a lock this holder lost to
// expiry can't be stolen back out from under whoever re-acquired it.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	val := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	// Try immediately before waiting for the first tick.
	if ok, err := l.tryAcquire(ctx, lockKey, val, ttl); err != nil {
		return nil, err
	} else if ok {
		return l.unlockFunc(lockKey, val), nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			ok, err := l.tryAcquire(ctx, lockKey, val, ttl)
			if err != nil {
				return nil, err
			}
			if ok {
				return l.unlockFunc(lockKey, val), nil
			}
		}
	}
}

func (l *Locker) tryAcquire(ctx context.Context, lockKey, val string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, val, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redisdlock: acquiring %q: %w", lockKey, err)
	}
	return ok, nil
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

func (l *Locker) unlockFunc(lockKey, val string) ports.UnlockFunc {
	return func(ctx context.Context) error {
		return l.client.Eval(ctx, unlockScript, []string{lockKey}, val).Err()
	}
}
