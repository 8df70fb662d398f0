package cacheval

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrEncode 表示值编码失败（例如包含循环引用或不可序列化类型）。
	ErrEncode = errors.New("cacheval: encode failed")

	// ErrDecode 表示 payload 无法解码为目标类型。
	ErrDecode = errors.New("cacheval: decode failed")

	// ErrAbsent 表示 payload 是 Null Sentinel，代表 loader 此前返回了 absent。
	ErrAbsent = errors.New("cacheval: value absent")

	// ErrNilTarget 表示 Decode 的 target 参数为 nil。
	ErrNilTarget = errors.New("cacheval: nil decode target")
)
