// Package cachekey 将一次操作的身份映射为稳定的缓存键。
//
// # 设计理念
//
// 键由 operation-id 加一个有序参数元组派生：无参数时 operation-id 本身即为键；
// 否则参数先被编码为规范字节形式，再通过 SHA-256 哈希，得到
// "<operation-id>:<hex>"。规范编码这一步是键跨进程稳定的关键——
// map 的迭代顺序和指针身份都不会泄漏进去。
//
// # Generate 永不失败
//
// 当规范编码不可行时（循环引用、channel、func 等不可序列化类型），
// Generate 退化为将每个参数的 fmt.Sprintf("%v", ...) 形式用 ":" 拼接，
// 并通过已配置的 logger 输出一条警告。退化形式可能与某个语言原生类型的
// 身份表示发生冲突，这是已知的、可接受的降级，而非常规路径。
package cachekey
