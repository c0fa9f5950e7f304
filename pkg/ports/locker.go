package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates "at most one active socket per
// instanceId" (spec.md §5) across horizontally-scaled host replicas. It is
// optional: a Session with no locker configured simply trusts that only
// one process is running per instanceId.
type DistributedLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
