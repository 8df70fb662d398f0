// Package fencing 签发并校验单调递增的写序 token。
//
// # 设计理念
//
// NextToken 对每个 (region, key) 维护一个计数器，存储在
// "fence:<region>:<hash-key>" 下，不设 TTL——计数器被设计为永久存在；
// 为废弃计数器做垃圾回收需要一个足够长的 TTL，还要为长期离线后又
// 重新出现的进程另外设计一套失败模式，这里选择让计数器永久保留，
// 不做这件事。
//
// ValidateAndStore 用一段 Lua 脚本完成原子的比较-并-存储：仅当 key
// 不存在，或已存储的值小于等于传入 token 时才接受并存储该 token。
//
// # Fail-open
//
// 远端出错时计数器选择 fail-open——返回 accepted=true 且附带一个非 nil
// 的 error，调用方可以据此记录日志/告警，同时仍然放行这次写入。把这里
// 改成 fail-closed，会把一次短暂的网络抖动变成缓存的静默不一致，
// 代价更大。
package fencing
