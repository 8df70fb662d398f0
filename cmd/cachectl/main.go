// cachectl 是缓存/分布式锁平台的运维命令行工具。
//
// 用法:
//
//	cachectl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	--redis-addr   Redis 地址 (默认: 127.0.0.1:6379)
//	--redis-db     Redis 逻辑库编号 (默认: 0)
//	--channel      失效广播频道名 (默认: invalidation.DefaultChannel)
//	-t, --timeout  命令超时时间 (默认: 10s)
//
// 命令:
//
//	get <region> <key>          读取 region 中 key 当前的 L2 缓存值
//	invalidate <region> <key>   使 region 中 key 失效（驱逐 + 广播）
//	invalidate-all <region>     清空本进程对 region 的本地视图并广播通配失效
//	lock try <name>             尝试获取一个分布式锁，成功则持有直到 Ctrl+C
//	watch                       持续打印收到的失效广播消息，直到 Ctrl+C
//
// get/invalidate/invalidate-all 都会以只读取向（L1 关闭、L2 开启）的方式
// 现场注册一次目标 region；这只影响 cachectl 自身这个短生命周期进程的视图，
// 不会与任何长驻进程已经注册的 region 配置冲突——region 的"重复注册需
// 一致"校验只在单个 Cache 实例内部生效。因此 get 展示的是 L2（远程层）
// 当前内容,而不是某个正在运行的长驻进程的 L1 命中率——L1 状态是进程私有
// 的，没有办法从外部进程观测。
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（包括: 未找到/未能获取锁）
//	2: 参数错误
//
// 示例:
//
//	cachectl get users u:42
//	cachectl invalidate users u:42
//	cachectl invalidate-all sessions
//	cachectl lock try nightly-reindex --ttl 5m
//	cachectl watch
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

const defaultTimeout = 10 * time.Second

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "cachectl",
		Usage:   "多级缓存与分布式锁平台的运维命令行工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "Redis 地址",
				Value: "127.0.0.1:6379",
			},
			&cli.IntFlag{
				Name:  "redis-db",
				Usage: "Redis 逻辑库编号",
				Value: 0,
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "失效广播频道名（留空使用默认频道）",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
		},
		Commands: createCommands(),
		Authors: []any{
			"Platform Team",
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Description: `cachectl 直接连接运维人员指定的 Redis 实例，就地构造
pkg/mlcache.Cache 与 pkg/distributed/xdlock 工厂实例，
用于现场排查和手动干预，而不是通过某个长驻进程的调试端口。

主要命令:
  get <region> <key>          读取 L2 中的当前值
  invalidate <region> <key>   驱逐并广播单个 key 的失效
  invalidate-all <region>     广播整个 region 的通配失效
  lock try <name>             尝试获取分布式锁并持有到 Ctrl+C
  watch                       订阅并打印失效广播流量`,
	}
}

// run 不自己处理 Ctrl+C:所有阻塞到信号为止的子命令（watch、lock try）
// 内部用 pkg/lifecycle/xrun.Run 协调自己的信号监听和收尾，一次性命令
// 则压根不需要信号处理。
func run() int {
	app := createApp()

	if err := app.Run(context.Background(), os.Args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}
