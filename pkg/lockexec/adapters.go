package lockexec

import (
	"context"
	"fmt"
	"time"

	"github.com/latticekit/platformkit/pkg/distributed/xdlock"
	"github.com/latticekit/platformkit/pkg/lockscript"
)

// ScriptLocker adapts a *lockscript.Service to the Locker interface.
type ScriptLocker struct {
	Service *lockscript.Service
}

// NewScriptLocker wraps svc as a Locker.
func NewScriptLocker(svc *lockscript.Service) ScriptLocker {
	return ScriptLocker{Service: svc}
}

func (l ScriptLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, error) {
	h, err := l.Service.TryAcquire(ctx, name, ttl)
	if err != nil || h == nil {
		return nil, err
	}
	return scriptHandle{h}, nil
}

// scriptHandle adapts lockscript.Handle to RenewableLockHandle, treating
// Renew's ttl as the additional extension lockscript.Handle.Extend
// expects, not an absolute new TTL.
type scriptHandle struct {
	handle lockscript.Handle
}

func (h scriptHandle) Release(ctx context.Context) error {
	return h.handle.Release(ctx)
}

func (h scriptHandle) Renew(ctx context.Context, ttl time.Duration) error {
	ok, err := h.handle.Extend(ctx, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("lockexec: lock %q no longer owned, extend rejected", h.handle.Name())
	}
	return nil
}

// FactoryLocker adapts an xdlock.Factory to the Locker interface, fixing
// the lock TTL in as the sole xdlock.MutexOption per acquisition.
type FactoryLocker struct {
	Factory xdlock.Factory
}

// NewFactoryLocker wraps factory as a Locker.
func NewFactoryLocker(factory xdlock.Factory) FactoryLocker {
	return FactoryLocker{Factory: factory}
}

func (l FactoryLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (LockHandle, error) {
	h, err := l.Factory.TryLock(ctx, name, xdlock.WithExpiry(ttl))
	if err != nil || h == nil {
		return nil, err
	}
	return factoryHandle{h}, nil
}

type factoryHandle struct {
	handle xdlock.LockHandle
}

func (h factoryHandle) Release(ctx context.Context) error {
	return h.handle.Unlock(ctx)
}

// Renew extends the lock's TTL back out to its originally configured
// Expiry. xdlock.LockHandle.Extend takes no ttl argument of its own, so
// the requested ttl is informational only here.
func (h factoryHandle) Renew(ctx context.Context, _ time.Duration) error {
	return h.handle.Extend(ctx)
}
