package localtier

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/latticekit/platformkit/pkg/util/xlru"
)

// Entry 是一个 hash-key 在 L1 持有的值：原始（已序列化）payload
// 加上它的插入时间。
type Entry struct {
	Payload    []byte
	InsertedAt time.Time
}

// Config 控制 Tier 的容量上限和单条记录的 TTL。
type Config struct {
	// MaxEntries 限制持有的条目数量，必须为正数。
	MaxEntries int

	// TTL 是相对插入时间的单条记录过期时间，必须为正数。
	TTL time.Duration
}

// Tier 是一个按 region 划分、带 single-flight 合并的 L1 缓存。
// 零值不可用，须通过 New 构造。
type Tier struct {
	cache *xlru.Cache[string, Entry]
	group singleflight.Group
}

// New 按 cfg 构造一个 Tier。
func New(cfg Config) (*Tier, error) {
	if cfg.MaxEntries <= 0 {
		return nil, ErrInvalidMaxEntries
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}

	cache, err := xlru.New[string, Entry](xlru.Config{Size: cfg.MaxEntries, TTL: cfg.TTL})
	if err != nil {
		return nil, err
	}
	return &Tier{cache: cache}, nil
}

// Get 返回 hashKey 对应的条目（若存在且未过期）。
func (t *Tier) Get(hashKey string) (Entry, bool) {
	return t.cache.Get(hashKey)
}

// Set 存储 hashKey 的 payload，并打上插入时间戳。
func (t *Tier) Set(hashKey string, payload []byte) {
	t.cache.Set(hashKey, Entry{Payload: payload, InsertedAt: time.Now()})
}

// Delete 驱逐 hashKey，若不存在则是空操作。
func (t *Tier) Delete(hashKey string) {
	t.cache.Delete(hashKey)
}

// Clear 清空该层的所有条目。
func (t *Tier) Clear() {
	t.cache.Clear()
}

// Len 返回当前条目数（延迟过期的条目在下次访问前可能仍被计入，
// 与 xlru 文档中记录的 Len 语义一致）。
func (t *Tier) Len() int {
	return t.cache.Len()
}

// Close 释放后台资源。Close 之后读操作返回零值，写操作被静默忽略
// （xlru 文档记录的行为）。
func (t *Tier) Close() error {
	return t.cache.Close()
}

// LoadResult 携带一次合并加载的结果。
type LoadResult struct {
	Value  any
	Shared bool
	Err    error
}

// Coalesce 保证同一进程内每个 hashKey 同一时刻最多一次 fn 在执行中；
// 同一 hashKey 的其他调用者会阻塞到这次调用完成，并直接拿到它的结果，
// 而不会各自再调用一次 fn。
func (t *Tier) Coalesce(hashKey string, fn func() (any, error)) LoadResult {
	v, err, shared := t.group.Do(hashKey, fn)
	return LoadResult{Value: v, Shared: shared, Err: err}
}

// Forget 移除 hashKey 对应的合并槽位（如果存在），让下一个调用者发起
// 一次全新的加载，而不是等待一个陈旧的进行中调用。用于 loader 出错后
// 提前清空槽位的场景（Loading -> Empty 状态迁移：
// Loading -(loader 抛错)-> Empty）。
func (t *Tier) Forget(hashKey string) {
	t.group.Forget(hashKey)
}
