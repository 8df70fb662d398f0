package mlcache

import (
	"context"
	"fmt"
	"time"
)

// detachedCtx strips the Done/Err/Deadline signal from a parent context
// while keeping its values, so a loader invoked on behalf of several
// single-flight waiters is not aborted just because the first caller's
// context was canceled.
type detachedCtx struct {
	context.Context
}

func (c detachedCtx) Deadline() (time.Time, bool) { return time.Time{}, false }
func (c detachedCtx) Done() <-chan struct{}       { return nil }
func (c detachedCtx) Err() error                  { return nil }

func detach(ctx context.Context) context.Context {
	return detachedCtx{Context: ctx}
}

// safeLoad runs loader with panic recovery so a single misbehaving
// loader cannot bring down the goroutine shared by every waiter on this
// single-flight slot.
func safeLoad(ctx context.Context, loader LoaderFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoaderPanicked, r)
		}
	}()
	return loader(ctx)
}
