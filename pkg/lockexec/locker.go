package lockexec

import (
	"context"
	"time"
)

// LockHandle represents a successfully acquired lock. Release must be
// safe to call exactly once and should not itself propagate a context
// cancellation into failing to release.
type LockHandle interface {
	Release(ctx context.Context) error
}

// Locker acquires named, TTL-bounded locks. A nil handle with a nil
// error means the lock is held elsewhere (or the backend is degraded
// and fails open/silent per its own documented behavior): both are
// ordinary "skip this run" outcomes, not errors.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, error)
}

// RenewableLockHandle is a LockHandle that can also extend its own TTL
// while held. Executor.Run type-asserts for this on the handle it gets
// back from Locker.TryAcquire; backends that can't renew simply don't
// implement it and Options.RenewInterval becomes a no-op.
type RenewableLockHandle interface {
	LockHandle
	Renew(ctx context.Context, ttl time.Duration) error
}
