package invalidation

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/latticekit/platformkit/pkg/kvstore"
	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// Message 是在失效 channel 上广播的线上 payload：region、一个 key 或
// "*" 通配符、以及发布进程的 originator-id。多余的未知字段会被容忍，
// 以保证通过 encoding/json 解码到这个固定结构体时的前向兼容性。
type Message struct {
	Region       string `json:"region"`
	Key          string `json:"key"`
	OriginatorID string `json:"originator_id"`
}

// Handler 处理一条已经过自回声过滤的失效消息。
type Handler func(ctx context.Context, msg Message)

// Bus 是进程级的失效消息发布者/订阅者。
type Bus struct {
	client       kvstore.Client
	channel      string
	originatorID string
	logger       xlog.Logger
}

// Option 配置 Bus。
type Option func(*Bus)

// WithChannel 覆盖默认的 channel 名称。
func WithChannel(channel string) Option {
	return func(b *Bus) {
		if channel != "" {
			b.channel = channel
		}
	}
}

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New 创建一个 Bus。originatorID 用于标识本进程以便做自回声抑制，
// 不能为空。
func New(client kvstore.Client, originatorID string, opts ...Option) (*Bus, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if originatorID == "" {
		return nil, ErrEmptyOriginatorID
	}
	b := &Bus{
		client:       client,
		channel:      DefaultChannel,
		originatorID: originatorID,
		logger:       xlog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Publish 发出一条标记了本进程 originator-id 的 (region, keyOrStar)
// 失效消息。失败会被记录并吞掉——触发这次发布的写入/驱逐操作不能因为
// 消息没能送达而失败。
func (b *Bus) Publish(ctx context.Context, region, keyOrStar string) {
	msg := Message{Region: region, Key: keyOrStar, OriginatorID: b.originatorID}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warn(ctx, "invalidation: failed to encode message", xlog.Err(err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, string(payload)); err != nil {
		b.logger.Warn(ctx, "invalidation: publish failed, other processes may serve stale L1",
			slog.String("region", region),
			slog.String("key", keyOrStar),
			xlog.Err(err),
		)
	}
}

// Subscribe 启动一个专属 goroutine，把消息投递给 handler。返回的 stop
// 函数会关闭订阅并等待该 goroutine 退出；多次调用是安全的。
func (b *Bus) Subscribe(ctx context.Context, handler Handler) (stop func() error, err error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	sub, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go b.loop(ctx, sub, handler, done)

	var stopped bool
	stop = func() error {
		if stopped {
			<-done
			return nil
		}
		stopped = true
		closeErr := sub.Close()
		<-done
		return closeErr
	}
	return stop, nil
}

func (b *Bus) loop(ctx context.Context, sub *kvstore.Subscription, handler Handler, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case redisMsg, ok := <-sub.Channel():
			if !ok {
				return
			}
			b.dispatch(ctx, redisMsg.Payload, handler)
		}
	}
}

// dispatch 解码并路由单条消息，对 handler 中的 panic 做了隔离，
// 保证一条坏消息或一个行为异常的 handler 不会杀死订阅循环——
// 与 xcron/wrapper.go 给后台续期 goroutine 的保证一致。
func (b *Bus) dispatch(ctx context.Context, payload string, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "invalidation: handler panic recovered", slog.Any("panic", r))
		}
	}()

	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Warn(ctx, "invalidation: malformed message dropped", xlog.Err(err))
		return
	}
	if msg.OriginatorID == b.originatorID {
		return // self-echo suppression
	}
	handler(ctx, msg)
}
