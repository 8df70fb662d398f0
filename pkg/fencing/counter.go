package fencing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/latticekit/platformkit/pkg/kvstore"
	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// Counter 为一个进程签发并校验 fencing token。
type Counter struct {
	client kvstore.Client
	logger xlog.Logger
}

// Option 配置 Counter。
type Option func(*Counter)

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(c *Counter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New 基于 client 构造一个 Counter。
func New(client kvstore.Client, opts ...Option) (*Counter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	c := &Counter{client: client, logger: xlog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func fenceKey(region, hashKey string) string {
	return "fence:" + region + ":" + hashKey
}

// NextToken 原子地递增并返回 (region, hashKey) 对应的 fence 计数器。
// 出错时原样向上传播。
func (c *Counter) NextToken(ctx context.Context, region, hashKey string) (uint64, error) {
	n, err := c.client.Incr(ctx, fenceKey(region, hashKey))
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// ValidateAndStore 原子运行 fence-validate 脚本：仅当已存储值不存在或
// <= token 时才接受并存储 token。远端出错时 fail-open，返回
// (true, non-nil error)，让调用方可以记录这次降级而不必中断写入——
// 这是一个刻意为之、文档中明确记录的权衡。
func (c *Counter) ValidateAndStore(ctx context.Context, region, hashKey string, token uint64) (accepted bool, err error) {
	key := fenceKey(region, hashKey)
	result, evalErr := c.client.Eval(ctx, validateScript, []string{key}, token)
	if evalErr != nil {
		c.logger.Warn(ctx, "fencing: remote error during validate-and-store, failing open",
			slog.String("region", region),
			slog.String("key", hashKey),
			xlog.Err(evalErr),
		)
		return true, errors.Join(ErrRemoteUnavailable, evalErr)
	}

	n, ok := asInt64(result)
	if !ok {
		c.logger.Warn(ctx, "fencing: unexpected script result type, failing open",
			slog.String("region", region),
			slog.String("key", hashKey),
		)
		return true, ErrRemoteUnavailable
	}
	return n == 1, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
