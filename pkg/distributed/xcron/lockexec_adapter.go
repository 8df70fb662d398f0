package xcron

import (
	"context"
	"time"

	"github.com/latticekit/platformkit/pkg/lockexec"
)

// lockerAdapter adapts this package's own Locker/LockHandle (TryLock,
// Unlock, Renew) to pkg/lockexec's Locker/RenewableLockHandle, so a
// jobWrapper's per-tick lock handling can be delegated to lockexec
// instead of hand-rolling acquire/renew/release itself.
type lockerAdapter struct {
	locker Locker
}

func (a lockerAdapter) TryAcquire(ctx context.Context, name string, ttl time.Duration) (lockexec.LockHandle, error) {
	h, err := a.locker.TryLock(ctx, name, ttl)
	if err != nil || h == nil {
		return nil, err
	}
	return handleAdapter{h}, nil
}

type handleAdapter struct {
	handle LockHandle
}

func (h handleAdapter) Release(ctx context.Context) error {
	return h.handle.Unlock(ctx)
}

func (h handleAdapter) Renew(ctx context.Context, ttl time.Duration) error {
	return h.handle.Renew(ctx, ttl)
}
