package remotetier

import (
	"context"
	"time"

	"github.com/latticekit/platformkit/pkg/kvstore"
)

// Tier 是一个进程使用的共享远端（L2）缓存层。
type Tier struct {
	client kvstore.Client
}

// New 用 client 包装出一个 Tier，client 不能为 nil。
func New(client kvstore.Client) (*Tier, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Tier{client: client}, nil
}

func remoteKey(region, hashKey string) string {
	return "cache:" + region + ":" + hashKey
}

// Get 返回 (region, hashKey) 对应的 payload，或 kvstore.ErrKeyNotFound。
func (t *Tier) Get(ctx context.Context, region, hashKey string) ([]byte, error) {
	return t.client.Get(ctx, remoteKey(region, hashKey))
}

// Set 以 ttl 将 payload 写入 (region, hashKey)。
func (t *Tier) Set(ctx context.Context, region, hashKey string, payload []byte, ttl time.Duration) error {
	return t.client.Set(ctx, remoteKey(region, hashKey), payload, ttl)
}

// Delete 从远端层驱逐 (region, hashKey)。
func (t *Tier) Delete(ctx context.Context, region, hashKey string) error {
	return t.client.Delete(ctx, remoteKey(region, hashKey))
}
