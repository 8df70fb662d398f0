package lockscript

import (
	"context"
	"log/slog"
	"time"

	"github.com/latticekit/platformkit/pkg/kvstore"
	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// Handle 代表一次成功获取的锁。Release 可以安全地重复调用，
// 第二次调用是空操作。
type Handle interface {
	// Name 返回锁的名字（不含 "lock:" 前缀）。
	Name() string

	// Release 在锁仍归本 handle 所有时释放它。错误会在内部记录并吞掉，
	// 始终返回 nil：无论如何锁都会通过 TTL 过期，调用方不需要重试。
	Release(ctx context.Context) error

	// Extend 在锁仍归本 handle 所有时把过期时间顺延 additionalTTL。
	// 所有权已丢失（过期或被他人抢占）时返回 (false, nil)；
	// 返回 error 说明远端调用本身失败了。
	Extend(ctx context.Context, additionalTTL time.Duration) (bool, error)
}

// Service 为一个进程身份签发并管理锁。
type Service struct {
	client  kvstore.Client
	ownerID string
	logger  xlog.Logger
}

// Option 配置 Service。
type Option func(*Service)

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New 基于 client 构造一个 Service，所有者为 ownerID（通常是
// pkg/identity 生成的进程级标识符）。
func New(client kvstore.Client, ownerID string, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}
	s := &Service{client: client, ownerID: ownerID, logger: xlog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func lockKey(name string) string {
	return "lock:" + name
}

// TryAcquire 尝试以 ttl 获取 name 对应的锁。返回 (nil, nil) 意味着锁
// 已被别处持有，或远端不可用——从调用方视角看这两种情况都是
// "未获取到"，这是锁获取路径有意设计的静默失败行为；远端错误仍然会
// 被记录下来供运维排查。
func (s *Service) TryAcquire(ctx context.Context, name string, ttl time.Duration) (Handle, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	key := lockKey(name)
	result, err := s.client.Eval(ctx, acquireScript, []string{key}, s.ownerID, int64(ttl.Seconds()))
	if err != nil {
		s.logger.Warn(ctx, "lockscript: acquire failed, treating as held",
			slog.String("name", name), xlog.Err(err))
		return nil, nil
	}

	n, ok := asInt64(result)
	if !ok || n != 1 {
		return nil, nil
	}
	return &handle{service: s, name: name}, nil
}

type handle struct {
	service *Service
	name    string
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) Release(ctx context.Context) error {
	key := lockKey(h.name)
	_, err := h.service.client.Eval(ctx, releaseScript, []string{key}, h.service.ownerID)
	if err != nil {
		h.service.logger.Warn(ctx, "lockscript: release failed, relying on ttl expiry",
			slog.String("name", h.name), xlog.Err(err))
	}
	return nil
}

func (h *handle) Extend(ctx context.Context, additionalTTL time.Duration) (bool, error) {
	if additionalTTL <= 0 {
		return false, ErrInvalidTTL
	}
	key := lockKey(h.name)
	result, err := h.service.client.Eval(ctx, extendScript, []string{key}, h.service.ownerID, additionalTTL.Milliseconds())
	if err != nil {
		return false, err
	}
	n, ok := asInt64(result)
	return ok && n == 1, nil
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
