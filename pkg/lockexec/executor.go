package lockexec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// releaseTimeout 限定了 fn 返回后用于释放锁的独立 context 的生命期，
// 保证调用方取消了 ctx 也不会阻止清理。
const releaseTimeout = 5 * time.Second

// Func 是在持锁期间运行的工作单元。
type Func func(ctx context.Context) (any, error)

// Options 描述一次锁范围内的执行。
type Options struct {
	// Name 标识锁，必填。
	Name string

	// LockAtMostFor 既是向底层锁申请的 TTL，也是预期 Func 持锁的最长
	// 时间，必填且必须为正数。
	LockAtMostFor time.Duration

	// LockAtLeastFor 是释放前持锁的最短时间，无论 Func 多快返回、
	// 是否返回了错误都生效。零值表示不设最短持锁时间。
	LockAtLeastFor time.Duration

	// AcquireTimeout 为正数时只限制 TryAcquire 这一次调用（用从 ctx
	// 派生出的独立超时），不影响之后 Func 可以运行多久。零值表示
	// acquire 调用直接使用原始 ctx。
	AcquireTimeout time.Duration

	// RenewInterval 为正数、且获取到的 handle 同时实现了
	// RenewableLockHandle 时，会在 Func 运行期间按此间隔续期，防止
	// Func 还没跑完锁就因 TTL 到期而失效。续期失败会立即取消 Func 的
	// context，确保不会有第二个执行者并发跑起来。零值表示不续期。
	RenewInterval time.Duration
}

// Executor 在从 Locker 获取的命名锁下运行闭包。
type Executor struct {
	locker Locker
	logger xlog.Logger
	tracer trace.Tracer

	mu            sync.Mutex
	misconfigured map[string]bool
}

// Option 配置 Executor。
type Option func(*Executor)

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracerProvider 设置执行 span 使用的 tracer provider。
// 传入 nil 会在调用时退回全局 provider。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracer = getTracer(tp)
	}
}

// New 基于 locker 构造一个 Executor。
func New(locker Locker, opts ...Option) (*Executor, error) {
	if locker == nil {
		return nil, ErrNilLocker
	}
	e := &Executor{
		locker:        locker,
		logger:        xlog.Default(),
		misconfigured: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = getTracer(nil)
	}
	return e, nil
}

// Run 尝试获取命名锁，获取成功时在持锁期间调用 fn。acquired 表明 fn
// 是否真正被调用：false 意味着锁被别处持有（或后端降级并报告为不存在），
// fn 被整体跳过——这是输掉这次竞争时的正常、非错误结果。
//
// 一旦 fn 被调用，锁至少会被持有 opts.LockAtLeastFor，无论 fn 多快
// 返回或是否返回了错误；释放操作始终会执行，通过一个独立超时的
// context，不受 ctx 或 fn 行为影响。如果 ctx 在等待最短持锁时间期间
// 被取消，等待会提前结束，但释放仍然会发生。
func (e *Executor) Run(ctx context.Context, opts Options, fn Func) (value any, err error, acquired bool) {
	if opts.Name == "" {
		return nil, ErrEmptyName, false
	}
	if opts.LockAtMostFor <= 0 {
		return nil, ErrInvalidLockAtMostFor, false
	}
	if fn == nil {
		return nil, ErrNilFunc, false
	}
	if opts.LockAtMostFor < opts.LockAtLeastFor {
		e.warnMisconfigured(ctx, opts)
	}

	spanCtx, span := startSpan(ctx, e.tracer, opts.Name)
	defer func() {
		setSpanError(span, err)
		if err == nil {
			setSpanOK(span)
		}
		if span != nil {
			span.End()
		}
	}()
	ctx = spanCtx

	acquireCtx := ctx
	var acquireCancel context.CancelFunc
	if opts.AcquireTimeout > 0 {
		acquireCtx, acquireCancel = context.WithTimeout(ctx, opts.AcquireTimeout)
	}
	handle, acquireErr := e.safeTryAcquire(acquireCtx, opts.Name, opts.LockAtMostFor)
	if acquireCancel != nil {
		acquireCancel()
	}
	if acquireErr != nil {
		e.logger.Warn(ctx, "lockexec: lock service error, treating run as failed",
			slog.String("name", opts.Name), xlog.Err(acquireErr))
		return nil, acquireErr, false
	}
	if handle == nil {
		e.logger.Debug(ctx, "lockexec: lock not acquired, skipping", slog.String("name", opts.Name))
		return nil, nil, false
	}

	taskCtx, taskCancel := context.WithCancel(ctx)
	defer taskCancel()

	var rn *renewal
	if renewable, ok := handle.(RenewableLockHandle); ok && opts.RenewInterval > 0 {
		rn = e.startRenew(ctx, opts.Name, renewable, opts.LockAtMostFor, opts.RenewInterval, taskCancel)
	}

	start := time.Now()
	value, err = e.invoke(taskCtx, fn)
	rn.stop()
	e.holdMinimum(ctx, opts.LockAtLeastFor-time.Since(start))

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if relErr := e.safeRelease(releaseCtx, handle); relErr != nil {
		e.logger.Warn(ctx, "lockexec: release failed, relying on ttl expiry",
			slog.String("name", opts.Name), xlog.Err(relErr))
	}

	return value, err, true
}

func (e *Executor) warnMisconfigured(ctx context.Context, opts Options) {
	e.mu.Lock()
	already := e.misconfigured[opts.Name]
	if !already {
		e.misconfigured[opts.Name] = true
	}
	e.mu.Unlock()
	if already {
		return
	}
	e.logger.Warn(ctx, "lockexec: LockAtMostFor is shorter than LockAtLeastFor, the lock may expire before the minimum hold elapses",
		slog.String("name", opts.Name),
		slog.Duration("lock_at_most_for", opts.LockAtMostFor),
		slog.Duration("lock_at_least_for", opts.LockAtLeastFor))
}

// holdMinimum 睡眠掉最短持锁时间里还剩下的部分，除非 ctx 先结束。
func (e *Executor) holdMinimum(ctx context.Context, remaining time.Duration) {
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// safeTryAcquire 调用 locker.TryAcquire，把第三方 Locker 实现里的
// panic 转换成 error，而不是让调用方崩溃。
func (e *Executor) safeTryAcquire(ctx context.Context, name string, ttl time.Duration) (handle LockHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle = nil
			err = fmt.Errorf("lockexec: locker.TryAcquire panicked: %v", r)
		}
	}()
	return e.locker.TryAcquire(ctx, name, ttl)
}

// safeRelease 调用 handle.Release，把 panic 转换成 error。
func (e *Executor) safeRelease(ctx context.Context, handle LockHandle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lockexec: handle.Release panicked: %v", r)
		}
	}()
	return handle.Release(ctx)
}

// invoke 运行 fn，把 panic 转换成 error，保证一个写坏的闭包永远不会
// 拖垮它的调用方。
func (e *Executor) invoke(ctx context.Context, fn Func) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("lockexec: func panicked: %v", r)
		}
	}()
	return fn(ctx)
}
