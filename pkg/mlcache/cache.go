package mlcache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.opentelemetry.io/otel/trace"

	"github.com/latticekit/platformkit/pkg/cachekey"
	"github.com/latticekit/platformkit/pkg/cacheval"
	"github.com/latticekit/platformkit/pkg/fencing"
	"github.com/latticekit/platformkit/pkg/invalidation"
	"github.com/latticekit/platformkit/pkg/kvstore"
	"github.com/latticekit/platformkit/pkg/localtier"
	"github.com/latticekit/platformkit/pkg/observability/xlog"
	"github.com/latticekit/platformkit/pkg/remotetier"
)

// LoaderFunc 为一次缓存未命中生产值。返回 (nil, nil) 表示"不存在"；
// 返回 error 表示加载失败，不会写入任何缓存。
type LoaderFunc func(ctx context.Context) (any, error)

// ephemeralCoalesceWindow 没有被任何代码引用，不影响合并行为：未启用
// L1 的 region 通过 ephemeralGroup 合并，singleflight.Group 在 loader
// 返回的瞬间就释放槽位，之后到达的调用者会各自重新加载，不存在固定
// 时长的合并窗口。
const ephemeralCoalesceWindow = time.Second

type registeredRegion struct {
	config         RegionConfig
	l1             *localtier.Tier
	ephemeralGroup singleflight.Group
}

func (r *registeredRegion) isExpired(hashKey string, payload []byte, insertedAt time.Time) bool {
	if r.config.CacheNulls && r.config.NullTTL > 0 && cacheval.IsNullSentinel(payload) {
		if time.Since(insertedAt) > r.config.NullTTL {
			return true
		}
	}
	if r.config.ExpireCondition == nil || cacheval.IsNullSentinel(payload) {
		return false
	}
	var decoded any
	if err := cacheval.Decode(payload, &decoded); err != nil {
		return false
	}
	return r.config.ExpireCondition(r.config.Name, hashKey, decoded)
}

func (r *registeredRegion) coalesce(hashKey string, fn func() (any, error)) localtier.LoadResult {
	if r.config.L1Enabled {
		return r.l1.Coalesce(hashKey, fn)
	}
	v, err, shared := r.ephemeralGroup.Do(hashKey, fn)
	return localtier.LoadResult{Value: v, Shared: shared, Err: err}
}

func (r *registeredRegion) forget(hashKey string) {
	if r.config.L1Enabled {
		r.l1.Forget(hashKey)
		return
	}
	r.ephemeralGroup.Forget(hashKey)
}

// Cache 是进程级的缓存协调者：把键生成器、序列化器、本地/远端两级
// 缓存、fencing 计数器和失效总线整合进一个按 region 划分的 API。
// 每个进程用 New 构造一次并复用；它持有进程范围的 L1 状态和一个
// 正在运行的 pub/sub 订阅。
type Cache struct {
	mu      sync.RWMutex
	regions map[string]*registeredRegion

	remote  *remotetier.Tier
	bus     *invalidation.Bus
	fences  *fencing.Counter
	keyGen  *cachekey.Generator
	logger  xlog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	stopBus func() error
}

// New 基于 client 构造一个 Cache。originatorID 标识本进程，只交给失效
// 总线用于失效消息的自回声抑制，不能为空（可用
// pkg/identity.New 派生）。New 会立即在失效 channel 上启动一个后台
// 订阅；关闭时调用 Close 停止它。
func New(ctx context.Context, client kvstore.Client, originatorID string, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	o := &options{logger: xlog.Default(), keyGenerator: cachekey.New()}
	for _, opt := range opts {
		opt(o)
	}

	remote, err := remotetier.New(client)
	if err != nil {
		return nil, err
	}
	fences, err := fencing.New(client, fencing.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	bus, err := invalidation.New(client, originatorID, append(o.invalidationOpts, invalidation.WithLogger(o.logger))...)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		regions: make(map[string]*registeredRegion),
		remote:  remote,
		bus:     bus,
		fences:  fences,
		keyGen:  o.keyGenerator,
		logger:  o.logger,
		metrics: metrics,
		tracer:  getTracer(o.tracerProvider),
	}

	stop, err := bus.Subscribe(ctx, c.handleInvalidation)
	if err != nil {
		return nil, err
	}
	c.stopBus = stop

	return c, nil
}

// Close 停止失效订阅。远端 client 的生命周期归构造它的调用方所有，
// 这里不会关闭它。
func (c *Cache) Close() error {
	if c.stopBus == nil {
		return nil
	}
	return c.stopBus()
}

func (c *Cache) handleInvalidation(_ context.Context, msg invalidation.Message) {
	c.mu.RLock()
	rr, ok := c.regions[msg.Region]
	c.mu.RUnlock()
	if !ok {
		return
	}
	if msg.Key == invalidation.WildcardKey {
		if rr.config.L1Enabled {
			rr.l1.Clear()
		}
		return
	}
	if rr.config.L1Enabled {
		rr.l1.Delete(msg.Key)
	}
}

// RegisterRegion 以 cfg.Name 为键注册 cfg。先到先得：对一个已注册的
// name 再次调用且配置不一致时，只会记录日志并忽略，不会替换已生效的
// 配置。
func (c *Cache) RegisterRegion(cfg RegionConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.regions[cfg.Name]; ok {
		if !sameConfig(existing.config, cfg) {
			// RegisterRegion 没有 ctx 参数；这是一次性的启动调用，
			// 不是能携带 trace 属性的热路径。
			c.logger.Warn(context.Background(), "mlcache: conflicting region re-registration ignored, keeping first",
				slog.String("region", cfg.Name))
		}
		return nil
	}

	rr := &registeredRegion{config: cfg}
	if cfg.L1Enabled {
		l1, err := localtier.New(localtier.Config{MaxEntries: cfg.L1MaxEntries, TTL: cfg.L1TTL})
		if err != nil {
			return err
		}
		rr.l1 = l1
	}
	c.regions[cfg.Name] = rr
	return nil
}

func (c *Cache) region(name string) (*registeredRegion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rr, ok := c.regions[name]
	if !ok {
		return nil, ErrRegionNotFound
	}
	return rr, nil
}

// lookupOutcome 区分"没有条目"（进入 loader）、"条目存在但代表不存在"
// （缓存的空值）和"条目存在且有值"这三种情况——get-or-load 对第一种
// 和后两种的处理方式不同。
type lookupOutcome int

const (
	outcomeMiss lookupOutcome = iota
	outcomeAbsent
	outcomeValue
)

func (c *Cache) lookup(ctx context.Context, region string, rr *registeredRegion, hashKey string, target any) (lookupOutcome, error) {
	if rr.config.L1Enabled {
		if entry, ok := rr.l1.Get(hashKey); ok {
			if rr.isExpired(hashKey, entry.Payload, entry.InsertedAt) {
				c.evictBoth(ctx, region, rr, hashKey)
			} else {
				return c.resolvePayload(ctx, entry.Payload, target, region, "l1")
			}
		}
	}

	if rr.config.L2Enabled {
		payload, err := c.remote.Get(ctx, region, hashKey)
		switch {
		case errors.Is(err, kvstore.ErrKeyNotFound):
			// fall through to miss below
		case err != nil:
			return outcomeMiss, err
		default:
			if rr.isExpired(hashKey, payload, time.Now()) {
				c.evictBoth(ctx, region, rr, hashKey)
			} else {
				if rr.config.L1Enabled {
					rr.l1.Set(hashKey, payload)
				}
				return c.resolvePayload(ctx, payload, target, region, "l2")
			}
		}
	}

	c.metrics.recordMiss(ctx, region)
	return outcomeMiss, nil
}

func (c *Cache) resolvePayload(ctx context.Context, payload []byte, target any, region, tier string) (lookupOutcome, error) {
	if cacheval.IsNullSentinel(payload) {
		c.metrics.recordHit(ctx, region, tier)
		return outcomeAbsent, nil
	}
	if err := cacheval.Decode(payload, target); err != nil {
		return outcomeMiss, err
	}
	c.metrics.recordHit(ctx, region, tier)
	return outcomeValue, nil
}

// Get 把 (region, hashKey) 的值取到 target 里。返回的 bool 在真正未
// 命中和命中了缓存的"不存在"两种情况下都是 false；区分这两者只对
// GetOrLoad 内部是否调用 loader 的决策有意义。
func (c *Cache) Get(ctx context.Context, region, hashKey string, target any) (bool, error) {
	rr, err := c.region(region)
	if err != nil {
		return false, err
	}
	outcome, err := c.lookup(ctx, region, rr, hashKey, target)
	if err != nil {
		return false, err
	}
	return outcome == outcomeValue, nil
}

// GetOrLoad 是核心读路径：检查两级缓存，彻底未命中时在按
// (region, hash-key) 划分的 single-flight 槽位下运行 loader，
// 保证同一 key 的并发调用者只观察到一次 loader 调用。
func (c *Cache) GetOrLoad(ctx context.Context, region, hashKey string, target any, loader LoaderFunc) (bool, error) {
	if loader == nil {
		return false, ErrNilLoader
	}
	rr, err := c.region(region)
	if err != nil {
		return false, err
	}

	ctx, span := startSpan(ctx, c.tracer, spanNameGetOrLoad)
	defer span.End()

	outcome, err := c.lookup(ctx, region, rr, hashKey, target)
	if err != nil {
		setSpanError(span, err)
		return false, err
	}
	if outcome != outcomeMiss {
		setSpanOK(span)
		return outcome == outcomeValue, nil
	}

	result := rr.coalesce(hashKey, func() (any, error) {
		return c.load(ctx, region, rr, hashKey, loader)
	})

	if result.Err != nil {
		rr.forget(hashKey)
		setSpanError(span, result.Err)
		return false, result.Err
	}

	payload, _ := result.Value.([]byte)
	if payload == nil || cacheval.IsNullSentinel(payload) {
		setSpanOK(span)
		return false, nil
	}
	if err := cacheval.Decode(payload, target); err != nil {
		setSpanError(span, err)
		return false, err
	}
	setSpanOK(span)
	return true, nil
}

// load 在 single-flight 槽位内部运行：先重新检查一次 L1（本 goroutine
// 等待成为 leader 期间，另一个等待者可能已经把它填上了），然后在一个
// 与发起调用者的取消脱钩的 context 上调用 loader，保证一个调用者
// 离开不会中止其他共享这个槽位的调用者的加载。
func (c *Cache) load(ctx context.Context, region string, rr *registeredRegion, hashKey string, loader LoaderFunc) (any, error) {
	if rr.config.L1Enabled {
		if entry, ok := rr.l1.Get(hashKey); ok && !rr.isExpired(hashKey, entry.Payload, entry.InsertedAt) {
			return entry.Payload, nil
		}
	}

	start := time.Now()
	value, err := safeLoad(detach(ctx), loader)
	c.metrics.recordLoad(ctx, region, err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	payload, err := cacheval.Encode(value)
	if err != nil {
		return nil, err
	}

	if cacheval.IsNullSentinel(payload) {
		if rr.config.CacheNulls {
			c.writeBoth(ctx, region, rr, hashKey, payload, rr.config.NullTTL)
		}
		return payload, nil
	}

	c.writeBoth(ctx, region, rr, hashKey, payload, 0)
	return payload, nil
}

// writeBoth 把 payload 写入两个已启用的层。nullTTL 非零时会覆盖
// region 的 L2 TTL（用于缓存的"不存在"条目）；L1 始终使用该层唯一
// 配置的 TTL，因为底层 LRU 不支持按条目覆盖，所以比 l1-ttl 更短的
// null-TTL 改为在 isExpired 里兜底判断。
func (c *Cache) writeBoth(ctx context.Context, region string, rr *registeredRegion, hashKey string, payload []byte, nullTTL time.Duration) {
	if rr.config.L1Enabled {
		rr.l1.Set(hashKey, payload)
	}
	if rr.config.L2Enabled {
		ttl := rr.config.L2TTL
		if nullTTL > 0 {
			ttl = nullTTL
		}
		if err := c.remote.Set(ctx, region, hashKey, payload, ttl); err != nil {
			c.logger.Warn(ctx, "mlcache: remote write failed",
				slog.String("region", region), slog.String("key", hashKey), xlog.Err(err))
			if !rr.config.LocalAsFallback {
				// local-as-fallback 为 false：调用方要求 L2 是权威来源，
				// 但写入路径按约定没有把这个错误向上返回的出口，
				// 所以只能记录日志。
				return
			}
		}
	}
}

// Put 无条件地把 value 按 region 的 TTL 写入两个已启用的层。
// 启用了 fencing 的 region 会拒绝 Put；请改用 PutFenced。
func (c *Cache) Put(ctx context.Context, region, hashKey string, value any) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	if rr.config.Fenced {
		return ErrFencedRegionRequiresToken
	}
	payload, err := cacheval.Encode(value)
	if err != nil {
		return err
	}
	c.writeBoth(ctx, region, rr, hashKey, payload, 0)
	return nil
}

// NextToken 为 (region, hashKey) 签发下一个 fencing token。
func (c *Cache) NextToken(ctx context.Context, region, hashKey string) (uint64, error) {
	return c.fences.NextToken(ctx, region, hashKey)
}

// PutFenced 在写入前校验 token。被拒绝时不会发生写入，accepted 为 false。
func (c *Cache) PutFenced(ctx context.Context, region, hashKey string, value any, token uint64) (accepted bool, err error) {
	rr, rerr := c.region(region)
	if rerr != nil {
		return false, rerr
	}

	ctx, span := startSpan(ctx, c.tracer, spanNamePutFenced)
	defer span.End()

	accepted, err = c.fences.ValidateAndStore(ctx, region, hashKey, token)
	if !accepted {
		setSpanOK(span)
		return false, err
	}

	payload, encErr := cacheval.Encode(value)
	if encErr != nil {
		setSpanError(span, encErr)
		return false, encErr
	}
	nullTTL := time.Duration(0)
	if cacheval.IsNullSentinel(payload) && rr.config.CacheNulls {
		nullTTL = rr.config.NullTTL
	} else if cacheval.IsNullSentinel(payload) {
		// 不缓存空值：整个写入被跳过，accepted 依然是 true
		setSpanOK(span)
		return true, err
	}
	c.writeBoth(ctx, region, rr, hashKey, payload, nullTTL)
	if err != nil {
		setSpanError(span, err)
	} else {
		setSpanOK(span)
	}
	return true, err
}

// EvictL1 只从本地层驱逐 (region, hashKey)。
func (c *Cache) EvictL1(region, hashKey string) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	if rr.config.L1Enabled {
		rr.l1.Delete(hashKey)
	}
	return nil
}

// EvictL2 只从远端层驱逐 (region, hashKey)。
func (c *Cache) EvictL2(ctx context.Context, region, hashKey string) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	if !rr.config.L2Enabled {
		return nil
	}
	return c.remote.Delete(ctx, region, hashKey)
}

func (c *Cache) evictBoth(ctx context.Context, region string, rr *registeredRegion, hashKey string) {
	if rr.config.L1Enabled {
		rr.l1.Delete(hashKey)
	}
	if rr.config.L2Enabled {
		if err := c.remote.Delete(ctx, region, hashKey); err != nil {
			c.logger.Warn(ctx, "mlcache: remote evict failed",
				slog.String("region", region), slog.String("key", hashKey), xlog.Err(err))
		}
	}
}

// ClearL1 清空 region 本地层的所有条目。
func (c *Cache) ClearL1(region string) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	if rr.config.L1Enabled {
		rr.l1.Clear()
	}
	return nil
}

// ClearL2 不受支持：扫描并删除一个 region 远端命名空间下的全部 key
// 被留给运维工具（对 "cache:<region>:*" 做 SCAN + pipelined DEL），
// 而不是放在热路径里，这一行为由实现自行决定。
func (c *Cache) ClearL2(_ context.Context, _ string) error {
	return errClearL2Unsupported
}

// Invalidate 从本进程两个层里驱逐 (region, hashKey)，并向共享失效
// channel 的所有其他进程广播这次驱逐。
func (c *Cache) Invalidate(ctx context.Context, region, hashKey string) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	c.evictBoth(ctx, region, rr, hashKey)
	c.bus.Publish(ctx, region, hashKey)
	return nil
}

// InvalidateAll 清空本进程 region 的 L1，并广播一次通配符驱逐。
// L2 有意保持不动：扫描一个 region 里的每个 key 代价高昂，其他进程
// 会在条目自然过期时重新向 L2 校验。
func (c *Cache) InvalidateAll(ctx context.Context, region string) error {
	rr, err := c.region(region)
	if err != nil {
		return err
	}
	if rr.config.L1Enabled {
		rr.l1.Clear()
	}
	c.bus.Publish(ctx, region, invalidation.WildcardKey)
	return nil
}

// InvalidateByOperation 使 operationID 和 args 本应产生的那个
// hash-key 对应的条目失效，让触发失效的调用点与填充缓存的调用点
// 解耦开来。
func (c *Cache) InvalidateByOperation(ctx context.Context, region, operationID string, args ...any) error {
	hashKey := c.keyGen.Generate(operationID, args...)
	return c.Invalidate(ctx, region, hashKey)
}

// errClearL2Unsupported 是本实现里 ClearL2 返回的错误。
var errClearL2Unsupported = errors.New("mlcache: clear-L2 is not supported, evict keys individually or via operator tooling")
