package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/latticekit/platformkit/pkg/observability/xlog"
	"github.com/latticekit/platformkit/pkg/resilience/xbreaker"
)

// Message 是一次 pub/sub 投递。
type Message struct {
	Channel string
	Payload string
}

// Subscription 是一个长期存在的 pub/sub 订阅。调用方用完后必须调用
// Close 释放底层连接。
type Subscription struct {
	pubsub *redis.PubSub
}

// Channel 返回投递 channel，在订阅关闭或连接断开时会被关闭。
func (s *Subscription) Channel() <-chan *redis.Message {
	return s.pubsub.Channel()
}

// Close 释放订阅占用的连接。
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// Client 暴露这里每个组件共用的远端键值原语：get/set/delete/incr、
// 一个用于原子脚本的 Lua eval 入口，以及 pub/sub。
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Eval(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error)
	Publish(ctx context.Context, channel string, message string) error
	Subscribe(ctx context.Context, channel string) (*Subscription, error)

	// Raw 返回底层的 redis.UniversalClient，供这个接口有意不暴露的
	// 操作使用（呼应 xcache "只做增值特性，其余用 Client() 逃生"
	// 的设计）。
	Raw() redis.UniversalClient

	Close() error
}

type client struct {
	rdb     redis.UniversalClient
	breaker *xbreaker.Breaker
	logger  xlog.Logger
}

// Option 配置一个 Client。
type Option func(*client)

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreaker 覆盖默认的熔断器，传入 nil 会被忽略，此时使用默认值
// （连续失败 5 次、60 秒打开超时）。
func WithBreaker(breaker *xbreaker.Breaker) Option {
	return func(c *client) {
		if breaker != nil {
			c.breaker = breaker
		}
	}
}

// New 把 rdb 包装成一个 Client，rdb 不能为 nil。
func New(rdb redis.UniversalClient, opts ...Option) (Client, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	c := &client{
		rdb:     rdb,
		breaker: xbreaker.NewBreaker("kvstore"),
		logger:  xlog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := c.breaker.Do(ctx, func() error {
		v, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrKeyNotFound
		}
		if err != nil {
			return classify(err)
		}
		payload = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *client) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.breaker.Do(ctx, func() error {
		if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			return classify(err)
		}
		return nil
	})
}

func (c *client) Delete(ctx context.Context, key string) error {
	return c.breaker.Do(ctx, func() error {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			return classify(err)
		}
		return nil
	})
}

func (c *client) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := c.breaker.Do(ctx, func() error {
		v, err := c.rdb.Incr(ctx, key).Result()
		if err != nil {
			return classify(err)
		}
		n = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *client) Eval(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	var result any
	err := c.breaker.Do(ctx, func() error {
		v, err := script.Run(ctx, c.rdb, keys, args...).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return classify(err)
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) Publish(ctx context.Context, channel string, message string) error {
	return c.breaker.Do(ctx, func() error {
		if err := c.rdb.Publish(ctx, channel, message).Err(); err != nil {
			return classify(err)
		}
		return nil
	})
}

// Subscribe 是长期存在的，有意不被熔断器包裹：熔断器保护的是一次次
// 独立的请求/响应调用，而 pub/sub 连接贯穿进程的整个生命周期，
// 重连由 go-redis 内部自行管理。
func (c *client) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, classify(err)
	}
	return &Subscription{pubsub: pubsub}, nil
}

func (c *client) Raw() redis.UniversalClient {
	return c.rdb
}

func (c *client) Close() error {
	return c.rdb.Close()
}

// classify 把一个 go-redis 错误归类到 Recoverable/Structural 分类法里。
// 网络和超时错误属于可恢复；驱动报告的其他错误（WRONGTYPE、解析错误）
// 属于结构性。
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrRecoverable, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrRecoverable, err)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrRecoverable, err)
	}
	return fmt.Errorf("%w: %w", ErrStructural, err)
}

func isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "i/o timeout", "refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
