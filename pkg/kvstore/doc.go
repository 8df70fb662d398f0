// Package kvstore 是远端 key/value 存储的一层薄类型封装，只暴露调用方
// 真正需要的原语：get、set、delete、incr、script-eval、publish、
// subscribe。它不追求成为一个通用的 Redis 客户端门面——需要这七个操作
// 之外能力的，预期是叠在它上面的 fencing、cache-tier、invalidation-bus
// 这几个包本身，而不是业务代码。
//
// # 设计理念
//
// 这是 xcache 工厂模式在"底层客户端直接暴露"这条原则上的延续：不包装
// 底层客户端的全部 API，只做统一的入口 + 增值功能（这里是熔断）。
//
// # 错误分类
//
// 错误分为两类：Recoverable（网络/超时——换一个节点或重试可能成功）和
// Structural（收到了回复，但形状不对——重试没有意义）。调用方据此分支：
// errors.Is(err, ErrRecoverable) / errors.Is(err, ErrStructural)。
//
// # 熔断
//
// 除 Subscribe 之外的每次调用都套了一层熔断器（pkg/resilience/xbreaker，
// 底层是 github.com/sony/gobreaker/v2），让一个正在
// 抖动的远端节点比单纯依赖逐次 context 超时更快地熔断打开，从而保护
// fencing 计数器的 fail-open 路径和缓存层的本地兜底路径，不被一长串
// 注定失败的重试拖垮。
package kvstore
