package kvstore

import "errors"

// =============================================================================
// 错误分类
// =============================================================================

var (
	// ErrRecoverable 表示网络或超时类错误，重试可能成功。
	ErrRecoverable = errors.New("kvstore: recoverable error")

	// ErrStructural 表示收到的响应类型与预期不符，重试无意义。
	ErrStructural = errors.New("kvstore: structural error")

	// ErrKeyNotFound 表示 key 不存在。
	ErrKeyNotFound = errors.New("kvstore: key not found")

	// ErrNilClient 表示传入的底层客户端为 nil。
	ErrNilClient = errors.New("kvstore: nil client")

	// ErrCircuitOpen 表示熔断器处于打开状态，请求被直接拒绝。
	ErrCircuitOpen = errors.New("kvstore: circuit open")
)
