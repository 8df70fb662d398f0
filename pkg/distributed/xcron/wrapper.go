package xcron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/latticekit/platformkit/pkg/lockexec"
)

// jobWrapper 包装原始任务，添加锁、超时、重试等能力。
// 实现 cron.Job 接口，以便被 robfig/cron 调度。
//
// 锁的获取/续期/释放委托给 pkg/lockexec.Executor（见 lockexec_adapter.go 的
// lockerAdapter），jobWrapper 自身只负责超时、追踪、钩子、重试和统计。
type jobWrapper struct {
	job      Job
	opts     *jobOptions
	locker   Locker
	executor *lockexec.Executor // nil 当 locker 为 nil 时
	logger   Logger
	stats    *Stats          // 执行统计
	baseCtx  context.Context // 可选: 立即执行任务使用的可取消上下文
}

// newJobWrapper 创建任务包装器
func newJobWrapper(job Job, locker Locker, logger Logger, stats *Stats, opts *jobOptions) *jobWrapper {
	w := &jobWrapper{
		job:    job,
		opts:   opts,
		locker: locker,
		logger: logger,
		stats:  stats,
	}
	if locker != nil {
		// lockexec.New只在 locker 为 nil 时出错，这里传入的是非 nil 的
		// lockerAdapter 值，不会失败。
		exec, _ := lockexec.New(lockerAdapter{locker: locker})
		w.executor = exec
	}
	return w
}

// Run 实现 cron.Job 接口
func (w *jobWrapper) Run() {
	ctx := context.Background()
	if w.baseCtx != nil {
		ctx = w.baseCtx
	}
	startTime := time.Now()

	if w.opts.name == "" || w.executor == nil {
		err := w.runLocked(ctx, startTime)
		if w.stats != nil {
			w.stats.recordExecution(w.opts.name, time.Since(startTime), err)
		}
		return
	}

	// 续期间隔为 TTL 的 1/3，至少 1 秒
	renewInterval := max(w.opts.lockTTL/3, time.Second)

	_, runErr, acquired := w.executor.Run(ctx, lockexec.Options{
		Name:           w.opts.name,
		LockAtMostFor:  w.opts.lockTTL,
		AcquireTimeout: w.opts.lockTimeout,
		RenewInterval:  renewInterval,
	}, func(taskCtx context.Context) (any, error) {
		return nil, w.runLocked(taskCtx, startTime)
	})

	if !acquired {
		if w.stats != nil {
			if runErr != nil {
				// 锁服务异常，计入失败（而非跳过），便于健康检查发现问题
				w.stats.recordExecution(w.opts.name, 0, runErr)
			} else {
				// 锁竞争失败（正常跳过）
				w.stats.recordSkip(w.opts.name)
			}
		}
		return
	}

	if w.stats != nil {
		w.stats.recordExecution(w.opts.name, time.Since(startTime), runErr)
	}
}

// runLocked 执行超时控制、链路追踪、钩子和任务本体，假定锁（如果需要）已经
// 被调用方持有。返回值是任务的执行结果，供 Run 记录统计。
func (w *jobWrapper) runLocked(ctx context.Context, startTime time.Time) error {
	ctx, cancel := w.applyTimeout(ctx)
	if cancel != nil {
		defer cancel()
	}

	ctx, span := w.startSpan(ctx)
	if span != nil {
		defer span.End()
	}

	ctx = w.runBeforeHooks(ctx)

	err := w.executeJob(ctx)
	duration := time.Since(startTime)

	w.runAfterHooks(ctx, duration, err)
	w.logResult(ctx, span, err)
	return err
}

// applyTimeout 应用超时控制
func (w *jobWrapper) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.opts.timeout > 0 {
		return context.WithTimeout(ctx, w.opts.timeout)
	}
	return ctx, nil
}

// startSpan 启动链路追踪。
// 设计决策: 独立 panic 隔离，防止 tracer 实现 panic 导致跳过任务执行，
// 锁虽有 TTL 兜底，但显式释放可避免不必要的等待。
func (w *jobWrapper) startSpan(ctx context.Context) (resultCtx context.Context, resultSpan Span) {
	if w.opts.tracer == nil {
		return ctx, nil
	}
	defer func() {
		if r := recover(); r != nil {
			w.logError(ctx, "tracer.Start panicked",
				"job", w.opts.name, "panic", r)
			resultCtx = ctx
			resultSpan = nil
		}
	}()
	return w.opts.tracer.Start(ctx, "xcron."+w.opts.name)
}

// executeJob 执行任务（可能带重试），包含 panic 恢复
func (w *jobWrapper) executeJob(ctx context.Context) (err error) {
	// panic 恢复：防止单个任务 panic 导致整个调度器崩溃
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xcron: job %q panicked: %v", w.opts.name, r)
		}
	}()

	if w.opts.retry != nil {
		return w.runWithRetry(ctx)
	}
	return w.job.Run(ctx)
}

// logResult 记录任务执行结果
func (w *jobWrapper) logResult(ctx context.Context, span Span, err error) {
	if err != nil {
		w.logError(ctx, "job failed",
			"job", w.opts.name, "error", err)
		if span != nil {
			span.RecordError(err)
		}
	} else {
		w.logDebug(ctx, "job completed",
			"job", w.opts.name)
	}
}

// runWithRetry 带重试执行任务。
// 每次重试独立 recover，将 panic 转为 error 参与重试判断，
// 避免 panic 中断整个重试循环且掩盖之前的重试错误。
func (w *jobWrapper) runWithRetry(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := w.safeRunJob(ctx)
		if err == nil {
			return nil // 成功
		}

		// 检查是否应该重试
		if !w.opts.retry.ShouldRetry(attempt, err) {
			return err
		}

		// 计算退避时间
		var backoff time.Duration
		if w.opts.backoff != nil {
			backoff = w.opts.backoff.NextDelay(attempt)
		}

		w.logWarn(ctx, "job failed, will retry",
			"job", w.opts.name, "attempt", attempt, "backoff", backoff, "error", err)

		// 等待退避时间
		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// safeRunJob 执行一次任务，将 panic 转为 error。
// 用于 runWithRetry 中每次重试的独立 panic 保护。
func (w *jobWrapper) safeRunJob(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xcron: job %q panicked: %v", w.opts.name, r)
		}
	}()
	return w.job.Run(ctx)
}

// 日志辅助方法

// logDebug 记录调试日志。
// 设计决策: 无 logger 时静默丢弃（不回退到 slog），因为 Debug 日志通常量大，
// 输出到默认 logger 会造成噪音。logWarn/logError 回退到 slog 是因为警告和错误不应被静默忽略。
func (w *jobWrapper) logDebug(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(ctx, msg, args...)
	}
}

func (w *jobWrapper) logWarn(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.Warn(ctx, msg, args...)
	} else {
		slog.WarnContext(ctx, "xcron: "+msg, args...)
	}
}

func (w *jobWrapper) logError(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.Error(ctx, msg, args...)
	} else {
		slog.ErrorContext(ctx, "xcron: "+msg, args...)
	}
}

// runBeforeHooks 执行 BeforeJob 钩子（正序）。
// 每个钩子独立 recover，防止单个钩子 panic 导致调度器崩溃。
func (w *jobWrapper) runBeforeHooks(ctx context.Context) context.Context {
	if len(w.opts.hooks) == 0 {
		return ctx
	}

	for _, hook := range w.opts.hooks {
		ctx = w.safeBeforeHook(ctx, hook)
	}
	return ctx
}

// safeBeforeHook 安全执行单个 BeforeJob 钩子，捕获 panic。
func (w *jobWrapper) safeBeforeHook(ctx context.Context, hook Hook) (result context.Context) {
	result = ctx
	defer func() {
		if r := recover(); r != nil {
			w.logError(ctx, "BeforeJob hook panicked",
				"job", w.opts.name, "panic", r)
			result = ctx // panic 时返回原始 ctx
		}
	}()
	return hook.BeforeJob(ctx, w.opts.name)
}

// runAfterHooks 执行 AfterJob 钩子（逆序，类似 defer）。
// 每个钩子独立 recover，防止单个钩子 panic 导致调度器崩溃。
func (w *jobWrapper) runAfterHooks(ctx context.Context, duration time.Duration, err error) {
	if len(w.opts.hooks) == 0 {
		return
	}

	// 逆序执行，类似 defer 的行为
	for i := len(w.opts.hooks) - 1; i >= 0; i-- {
		w.safeAfterHook(ctx, w.opts.hooks[i], duration, err)
	}
}

// safeAfterHook 安全执行单个 AfterJob 钩子，捕获 panic。
func (w *jobWrapper) safeAfterHook(ctx context.Context, hook Hook, duration time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logError(ctx, "AfterJob hook panicked",
				"job", w.opts.name, "panic", r)
		}
	}()
	hook.AfterJob(ctx, w.opts.name, duration, err)
}
