// Package invalidation 实现缓存失效总线：一个逻辑上单一的 pub/sub
// channel，承载 {region, key-or-"*", originator-id} 消息。
//
// # 设计理念
//
// 订阅者忽略自己的 originator-id（自回声抑制），收到 "*" 时清空整个
// region 的 L1，否则只驱逐一个 key。格式错误的消息被记录后直接丢弃，
// 不会杀死订阅循环——循环本身对每条消息做了 panic 隔离，与
// xcron/wrapper.go "后台 goroutine 绝不能死" 的做法一致。
//
// # 已知弱点
//
// Publish 失败只会被记录，不会让调用方的写入或驱逐操作失败——这是一个
// 明确记录在案的弱点：一次丢失的 publish 会让其他进程的 L1 保持陈旧，
// 直到各自的 TTL 过期。
package invalidation
