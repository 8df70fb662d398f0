package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/latticekit/platformkit/pkg/distributed/xdlock"
	"github.com/latticekit/platformkit/pkg/identity"
	"github.com/latticekit/platformkit/pkg/invalidation"
	"github.com/latticekit/platformkit/pkg/kvstore"
	"github.com/latticekit/platformkit/pkg/lifecycle/xrun"
	"github.com/latticekit/platformkit/pkg/mlcache"
)

// exitError 表示命令已经完成了全部输出，main 只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// isCLIUsageError 判断 err 是否是 urfave/cli 自身在参数解析阶段产生的
// ExitCoder（未知命令、未知 flag 等），这类错误已经由框架或
// ExitErrHandler 输出过消息，这里只需要把退出码归一到参数错误契约。
func isCLIUsageError(err error) bool {
	var ec cli.ExitCoder
	return errors.As(err, &ec)
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		createGetCommand(),
		createInvalidateCommand(),
		createInvalidateAllCommand(),
		createLockCommand(),
		createWatchCommand(),
	}
}

// readOnlyRegion 是 cachectl 自己就地注册的 region 配置：只开启 L2，
// 因为 L1 对一个一次性进程没有意义，且不会与任何长驻进程已经注册的
// region 起冲突——RegisterRegion 的重复注册一致性校验只在单个 Cache
// 实例内部生效。
func readOnlyRegion(name string, l2TTL time.Duration) mlcache.RegionConfig {
	return mlcache.RegionConfig{
		Name:      name,
		L2Enabled: true,
		L2TTL:     l2TTL,
	}
}

// bootstrap 构造本次命令需要的底层依赖：redis 客户端、kvstore.Client，
// 以及这个进程自己的身份（用于失效广播的自我回声抑制和锁的持有者标识）。
func bootstrap(cmd *cli.Command) (kvstore.Client, string, func() error, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cmd.String("redis-addr"),
		DB:   cmd.Int("redis-db"),
	})
	client, err := kvstore.New(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, "", nil, err
	}
	ownerID := identity.New("")
	closeFn := func() error {
		return client.Close()
	}
	return client, ownerID, closeFn, nil
}

// cacheOptions 把 --channel 全局 flag 转成 mlcache.Option，未指定时返回
// nil，让 mlcache.New 使用 invalidation 包的默认频道名。
func cacheOptions(cmd *cli.Command) []mlcache.Option {
	if channel := cmd.String("channel"); channel != "" {
		return []mlcache.Option{mlcache.WithInvalidationChannel(channel)}
	}
	return nil
}

// busOptions 是 cacheOptions 面向直接构造 invalidation.Bus 的命令
// （watch）的等价版本。
func busOptions(cmd *cli.Command) []invalidation.Option {
	if channel := cmd.String("channel"); channel != "" {
		return []invalidation.Option{invalidation.WithChannel(channel)}
	}
	return nil
}

// createGetCommand 创建 get 子命令。
func createGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "读取 region 中 key 当前的 L2 缓存值",
		ArgsUsage: "<region> <key>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "就地注册 region 时使用的 L2 TTL（仅影响本次查询的注册，不影响已有数据）",
				Value: time.Minute,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return &usageError{"get 需要两个参数: <region> <key>"}
			}
			return cmdGet(ctx, cmd, args[0], args[1])
		},
	}
}

func cmdGet(ctx context.Context, cmd *cli.Command, region, key string) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	client, ownerID, closeFn, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	cache, err := mlcache.New(ctx, client, ownerID, cacheOptions(cmd)...)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.RegisterRegion(readOnlyRegion(region, cmd.Duration("ttl"))); err != nil {
		return err
	}

	var value any
	found, err := cache.Get(ctx, region, key, &value)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("%s/%s: 未命中（L2 中不存在，或已被标记为空值过期）\n", region, key)
		return &exitError{code: 1}
	}

	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

// createInvalidateCommand 创建 invalidate 子命令。
func createInvalidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "invalidate",
		Usage:     "驱逐并广播单个 key 的失效",
		ArgsUsage: "<region> <key>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return &usageError{"invalidate 需要两个参数: <region> <key>"}
			}
			return cmdInvalidate(ctx, cmd, args[0], args[1])
		},
	}
}

func cmdInvalidate(ctx context.Context, cmd *cli.Command, region, key string) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	client, ownerID, closeFn, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	cache, err := mlcache.New(ctx, client, ownerID, cacheOptions(cmd)...)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.RegisterRegion(readOnlyRegion(region, time.Minute)); err != nil {
		return err
	}
	if err := cache.Invalidate(ctx, region, key); err != nil {
		return err
	}
	fmt.Printf("已驱逐并广播 %s/%s 的失效\n", region, key)
	return nil
}

// createInvalidateAllCommand 创建 invalidate-all 子命令。
func createInvalidateAllCommand() *cli.Command {
	return &cli.Command{
		Name:      "invalidate-all",
		Usage:     "广播整个 region 的通配失效",
		ArgsUsage: "<region>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 1 {
				return &usageError{"invalidate-all 需要一个参数: <region>"}
			}
			return cmdInvalidateAll(ctx, cmd, args[0])
		},
	}
}

func cmdInvalidateAll(ctx context.Context, cmd *cli.Command, region string) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	client, ownerID, closeFn, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	cache, err := mlcache.New(ctx, client, ownerID, cacheOptions(cmd)...)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.RegisterRegion(readOnlyRegion(region, time.Minute)); err != nil {
		return err
	}
	if err := cache.InvalidateAll(ctx, region); err != nil {
		return err
	}
	fmt.Printf("已广播 %s 的通配失效（L2 不会被批量清空，依赖各进程自然过期）\n", region)
	return nil
}

// createLockCommand 创建 lock 子命令组。
func createLockCommand() *cli.Command {
	return &cli.Command{
		Name:  "lock",
		Usage: "分布式锁操作",
		Commands: []*cli.Command{
			createLockTryCommand(),
		},
	}
}

func createLockTryCommand() *cli.Command {
	return &cli.Command{
		Name:      "try",
		Usage:     "尝试获取一个分布式锁，成功则持有直到 Ctrl+C",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "锁的过期时间，持有期间会按该周期自动续期",
				Value: time.Minute,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 1 {
				return &usageError{"lock try 需要一个参数: <name>"}
			}
			return cmdLockTry(ctx, cmd, args[0])
		},
	}
}

// cmdLockTry 获取锁后用 xrun.Run 托管"续期直到收到信号"这段生命周期：
// 信号监听、取消传播、以及最终释放前的收尾动作都交给 xrun，而不是自己
// 再手搭一套 signal.Notify + select。
func cmdLockTry(ctx context.Context, cmd *cli.Command, name string) error {
	rdb := redis.NewClient(&redis.Options{
		Addr: cmd.String("redis-addr"),
		DB:   cmd.Int("redis-db"),
	})
	defer func() { _ = rdb.Close() }()

	factory, err := xdlock.NewRedisFactory(rdb)
	if err != nil {
		return err
	}
	defer func() { _ = factory.Close() }()

	ttl := cmd.Duration("ttl")
	acquireCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	handle, err := factory.TryLock(acquireCtx, name, xdlock.WithExpiry(ttl))
	cancel()
	if err != nil {
		return err
	}
	if handle == nil {
		fmt.Printf("锁 %q 当前被其他实例持有\n", name)
		return &exitError{code: 1}
	}

	fmt.Printf("已获取锁 %q（ttl=%s），按 Ctrl+C 释放\n", name, ttl)

	runErr := xrun.Run(ctx, func(runCtx context.Context) error {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-ticker.C:
				if err := handle.Extend(runCtx); err != nil {
					return fmt.Errorf("续期锁 %q 失败，所有权可能已丢失: %w", name, err)
				}
			}
		}
	})

	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
	releaseErr := handle.Unlock(releaseCtx)
	releaseCancel()

	var sigErr *xrun.SignalError
	if !errors.As(runErr, &sigErr) && runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		return &exitError{code: 1}
	}
	if releaseErr != nil && !errors.Is(releaseErr, xdlock.ErrNotLocked) {
		fmt.Fprintf(os.Stderr, "释放锁失败: %v\n", releaseErr)
		return &exitError{code: 1}
	}
	fmt.Printf("已释放锁 %q\n", name)
	return nil
}

// createWatchCommand 创建 watch 子命令。
func createWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "订阅并打印失效广播流量，直到 Ctrl+C",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdWatch(ctx, cmd)
		},
	}
}

// cmdWatch 订阅直到收到信号，生命周期同样交给 xrun.Run 管理。
func cmdWatch(ctx context.Context, cmd *cli.Command) error {
	client, ownerID, closeFn, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	bus, err := invalidation.New(client, ownerID, busOptions(cmd)...)
	if err != nil {
		return err
	}

	fmt.Println("正在监听失效广播，按 Ctrl+C 退出")
	runErr := xrun.Run(ctx, func(runCtx context.Context) error {
		stop, err := bus.Subscribe(runCtx, func(_ context.Context, msg invalidation.Message) {
			if msg.Key == invalidation.WildcardKey {
				fmt.Printf("[通配失效] region=%s origin=%s\n", msg.Region, msg.OriginatorID)
				return
			}
			fmt.Printf("[失效] region=%s key=%s origin=%s\n", msg.Region, msg.Key, msg.OriginatorID)
		})
		if err != nil {
			return err
		}
		<-runCtx.Done()
		return stop()
	})

	var sigErr *xrun.SignalError
	if errors.As(runErr, &sigErr) {
		return nil
	}
	return runErr
}

// usageError 表示参数校验失败，对应退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
