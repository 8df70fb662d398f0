// Package mlcache 实现缓存协调器（Cache Coordinator）：将
// get / get-or-load / put / put-fenced / evict / invalidate 编排逻辑，
// 与键生成器、序列化器、本地层、远端层、fencing 计数器和失效总线
// 接到同一个按 region 划分的 API 上。
//
// # 设计理念
//
// 构造方式沿用 xcache/loader.go 的模式：一个带 validate() 快速失败步骤的
// functional-options 结构体，在进程启动时构造一次并长期复用
// （"把协调器本身当作进程级状态对待"）。
//
// get-or-load 路径沿用 xcache/loader_impl.go 和 xauth/token_cache.go 的做法：
// 先查 L1，再查 L2，完全未命中时获取 (region, hash-key) 对应的 singleflight
// 槽位，在槽位内部再次检查 L1，然后才真正调用一次 loader。
//
// # 核心组件
//
//   - Region：每个 region 独立配置 L1/L2 开关、TTL、是否启用 fencing
//   - 本地层（L1）：可选，由 pkg/localtier 提供
//   - 远端层（L2）：可选，由 pkg/remotetier 提供
//   - Fencing：可选，写路径按 fencing token 拒绝过期写入
//   - 失效总线：跨进程广播失效事件，保持多进程 L1 最终一致
package mlcache
