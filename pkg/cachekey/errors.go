package cachekey

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrEmptyOperationID 表示传入的 operation-id 为空字符串。
	ErrEmptyOperationID = errors.New("cachekey: empty operation id")
)
