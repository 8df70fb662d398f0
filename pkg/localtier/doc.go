// Package localtier 实现按 region 划分的本地（L1）层：一个有容量上限、
// 带 TTL 过期的 hash-key 到 Entry 的映射，并通过 single-flight 合并并发
// 请求，保证同一进程内每个 (region, hash-key) 同一时刻至多一个 loader
// 在跑。
//
// # 设计理念
//
// 有界映射直接用 hashicorp/golang-lru/v2 的 expirable LRU，通过
// xlru.Cache 包装，与通用本地缓存的做法完全一致。合并并发用一个朴素的
// golang.org/x/sync/singleflight.Group：singleflight 在 Do 调用返回的
// 瞬间就会忘记这个 key——load 进行中到达的并发调用者共享同一次调用，
// load 完成之后才到达的调用者各自重新发起一次。L1 被禁用的 region 不
// 使用本包，由 pkg/mlcache 自己的 singleflight.Group 按同样方式合并，
// 合并范围同样只持续到 load 返回，没有固定时长的窗口。
package localtier
