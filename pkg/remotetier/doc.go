// Package remotetier 实现共享（L2）层：带 region TTL 的命名空间化字符串
// 值，存储于 "cache:<region>:<hash-key>"。
//
// # 设计理念
//
// 读操作返回 payload 或 ErrKeyNotFound。写操作是 best-effort 的：远端
// 出错时把错误原样返回给调用方。pkg/mlcache 的协调器对写入错误一律
// 记录日志后继续，不向上传播，与 region 的 local-as-fallback 配置无关。
package remotetier
