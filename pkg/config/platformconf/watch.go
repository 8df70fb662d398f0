package platformconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCallback 文件变更回调函数
// 当配置文件发生变更时调用，err 表示重载是否成功
type WatchCallback func(cfg Config, err error)

// Watcher 配置文件监视器
// 监控配置文件变更并自动重载
type Watcher struct {
	cfg      *koanfConfig
	watcher  *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
	stopped  bool        // 标记资源是否已释放，确保 Stop() 幂等
	timer    *time.Timer // debounce 定时器，Stop() 时需要取消

	runWg      sync.WaitGroup // run goroutine 生命周期
	callbackWg sync.WaitGroup // in-flight 防抖回调
}

// WatchOption 监视器配置选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

func defaultWatchOptions() *watchOptions {
	return &watchOptions{
		debounce: 100 * time.Millisecond, // 默认防抖时间
	}
}

// validate 校验监视器选项。
func (o *watchOptions) validate() error {
	if o.debounce <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDebounce, o.debounce)
	}
	return nil
}

// WithDebounce 设置防抖时间
// 在指定时间内的多次变更只触发一次重载
// 默认值为 100ms，适合大多数场景
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// Watch 创建配置文件监视器
//
// 监控配置文件变更并自动调用 Reload() 重新加载配置。
// 当配置文件变更时，会调用 callback 通知调用方——典型用法是重新
// 解析 region 映射或 process 配置并应用变更。
//
// 注意:
//   - 只能监视从文件创建的 Config（通过 New() 创建）
//   - 从 bytes 创建的 Config 不支持监视
//   - 返回的 Watcher 需要调用 Start() 开始监视，Stop() 停止监视
//   - Stop() 保证返回后不再有回调执行
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported config type %T", ErrWatchFailed, cfg)
	}

	if callback == nil {
		return nil, ErrNilCallback
	}

	if kc.isBytes {
		return nil, ErrNotFromFile
	}

	if kc.path == "" {
		return nil, ErrEmptyPath
	}

	options := defaultWatchOptions()
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}

	// 监视配置文件所在目录（而非文件本身），因为编辑器保存文件时
	// 可能先删除再创建，直接监视文件会丢失事件
	dir := filepath.Dir(kc.path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("%w: failed to watch directory %s: %w", ErrWatchFailed, dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		cfg:      kc,
		watcher:  fsWatcher,
		callback: callback,
		debounce: options.debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 启动监视
// 此方法会阻塞，通常应在 goroutine 中调用
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.runWg.Add(1)
	w.mu.Unlock()

	defer w.runWg.Done()
	w.run()
}

// StartAsync 异步启动监视
// 在后台 goroutine 中运行，立即返回
func (w *Watcher) StartAsync() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.runWg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.runWg.Done()
		w.run()
	}()
}

// Stop 停止监视并释放 fsnotify 资源。
// Stop 返回后保证不再有回调执行。
func (w *Watcher) Stop() error {
	w.mu.Lock()

	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true

	if !w.running {
		w.cancel()
		w.mu.Unlock()
		return w.watcher.Close()
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	w.cancel()
	w.running = false
	w.mu.Unlock()

	w.runWg.Wait()
	w.callbackWg.Wait()

	return w.watcher.Close()
}

// run 运行监视循环
func (w *Watcher) run() {
	filename := filepath.Base(w.cfg.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

// handleEvent 处理文件系统事件
func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}

	// Write: 直接修改; Create: 新建文件（部分编辑器）;
	// Rename: 原子写入模式（vim/emacs 写临时文件后 rename）;
	// Remove: 文件被删除（Reload 会失败并通过 callback 通知）
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if !w.running {
			w.mu.Unlock()
			return
		}
		w.callbackWg.Add(1)
		w.mu.Unlock()
		defer w.callbackWg.Done()

		err := w.cfg.Reload()
		w.safeCallback(err)
	})
}

// handleError 处理 watcher 错误
func (w *Watcher) handleError(err error) {
	w.safeCallback(fmt.Errorf("platformconf: watch error: %w", err))
}

// safeCallback 安全地调用用户回调，捕获 panic 防止进程崩溃。
func (w *Watcher) safeCallback(err error) {
	if w.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("platformconf: watch callback panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	w.callback(w.cfg, err)
}

// WatchConfig 配置监视的便捷接口。
type WatchConfig interface {
	Config

	// Watch 监视配置文件变更
	Watch(callback WatchCallback, opts ...WatchOption) (*Watcher, error)
}

// koanfConfig 实现 WatchConfig 接口
func (c *koanfConfig) Watch(callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	return Watch(c, callback, opts...)
}
