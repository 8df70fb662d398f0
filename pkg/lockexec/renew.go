package lockexec

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// renewal 追踪一个为持有的锁续期的后台 goroutine。
type renewal struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startRenew 按 interval 持续续期 handle，直到 ctx 结束或某次续期失败；
// 续期失败时调用 taskCancel，让正在运行的 Func 被中止，而不是继续
// 误以为自己还持有锁。
func (e *Executor) startRenew(ctx context.Context, name string, handle RenewableLockHandle, ttl, interval time.Duration, taskCancel context.CancelFunc) *renewal {
	renewCtx, cancel := context.WithCancel(ctx)
	r := &renewal{cancel: cancel}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				e.logger.Error(ctx, "lockexec: lock renewal panicked, canceling run",
					slog.String("name", name), slog.Any("panic", rec))
				taskCancel()
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-renewCtx.Done():
				return
			case <-ticker.C:
				callCtx, callCancel := context.WithTimeout(renewCtx, interval)
				err := handle.Renew(callCtx, ttl)
				callCancel()
				if err != nil {
					e.logger.Error(ctx, "lockexec: lock renewal failed, canceling run",
						slog.String("name", name), xlog.Err(err))
					taskCancel()
					return
				}
			}
		}
	}()
	return r
}

func (r *renewal) stop() {
	if r == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}
