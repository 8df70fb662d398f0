// Package identity 生成并持有进程级的 owner-id / originator-id：
// 一个被锁所有权检查和失效自回声抑制共用的稳定标识符。
//
// # 设计理念
//
// 显式配置的值总是优先；未配置时，在启动时生成一个新的 google/uuid，
// 并在整个进程生命周期内复用。
package identity
