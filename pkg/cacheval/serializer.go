package cacheval

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// tagValue/tagAbsent 给每个 payload 打上一字节标记，保证 Null Sentinel
// 永远不会和一个 JSON 编码的用户值撞在一起：无论怎么构造，一份真正的
// JSON 文档都是由 encoding/json 产出的，永远不会以 tagAbsent 开头——
// 只有 Encode 本身会把这个字节当成整份 payload 发出去。早期版本用裸
// 字符串 `"__NULL__"` 当 sentinel，结果和调用方合法地编码同一个 Go
// 字符串撞了车；标签字节从结构上堵死了这个漏洞，而不是靠挑一个
// "看起来不太可能"的字面量。
const (
	tagAbsent byte = 0x00
	tagValue  byte = 0x01
)

// NullSentinel 是代表"loader 返回了不存在"的特殊 payload。
var NullSentinel = []byte{tagAbsent}

// Encode 把 v 变成一份 payload。Encode(nil) 返回 Null Sentinel。
// 结构上无法表示的输入（循环引用、channel、func）返回 ErrEncode；
// 调用方必须把它当成致命错误，不能向任何层写入任何东西。
func Encode(v any) ([]byte, error) {
	if v == nil {
		return NullSentinel, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	payload := make([]byte, 0, len(body)+1)
	payload = append(payload, tagValue)
	payload = append(payload, body...)
	return payload, nil
}

// Decode 把 payload 解码进 target。如果 payload 是 Null Sentinel，
// Decode 返回 ErrAbsent 且不改动 target；调用方必须先显式检查
// ErrAbsent（errors.Is），再把其他任何解码错误当成硬失败处理。
func Decode(payload []byte, target any) error {
	if target == nil {
		return ErrNilTarget
	}
	if bytes.Equal(payload, NullSentinel) {
		return ErrAbsent
	}
	if len(payload) == 0 || payload[0] != tagValue {
		return fmt.Errorf("%w: malformed payload", ErrDecode)
	}
	if err := json.Unmarshal(payload[1:], target); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// IsNullSentinel 判断 payload 是否正好等于 Null Sentinel，
// 供想在不调用 Decode 的情况下直接分支的调用方使用。
func IsNullSentinel(payload []byte) bool {
	return bytes.Equal(payload, NullSentinel)
}
