// Package cacheval 编解码缓存值，用一个独立的 Null Sentinel payload
// 表示"值不存在"，而不是把"没有这一项"和"这一项存的是零值"混为一谈。
//
// # 设计理念
//
// Encode(nil) 返回 sentinel；Decode(sentinel, &target) 返回 ErrAbsent，
// 调用方据此区分"loader 之前就返回了 absent"和"解码失败"这两种情况。
//
// Encode 失败（循环引用、channel、func 等不可序列化类型）是致命的：
// 调用方不能写入部分或兜底 payload——encode 失败即"本次写入不执行"。
// Decode 失败（payload 形状与 target 不匹配）同样致命且必须一路传播，
// 过期/损坏数据绝不能被静默吞掉。
//
// # Sentinel 编码
//
// payload 以一个 tag 字节开头（tagAbsent=0x00 表示 sentinel 本身，
// tagValue=0x01 表示后面跟着一段 JSON），而不是用一个"看起来不太可能"的
// 字符串字面量。json.Marshal 产生的任何合法 JSON 文档都不会以 0x00 开头，
// 这个不变式由帧结构本身保证，不依赖于对用户输入空间的猜测。
package cacheval
