// Package lockscript 基于共享的远端 KV 客户端实现一个原始的 Lua 脚本锁
// 后端：try-acquire、release、extend 各对应一段原子脚本，保证进程在
// 操作中途崩溃也不会留下一个永不释放或被错误占有的锁。
//
// # 设计理念
//
// 它是 pkg/distributed/xdlock 的 redsync 和 etcd 两个后端之外更轻量的
// 兄弟实现，面向只有单个 Redis（或兼容协议）节点、不想引入 Redlock
// 多节点算法或 etcd 客户端的部署场景。
package lockscript
