package lockscript

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilClient 表示传入的 kvstore.Client 为 nil。
	ErrNilClient = errors.New("lockscript: nil client")

	// ErrEmptyOwnerID 表示进程身份为空。
	ErrEmptyOwnerID = errors.New("lockscript: empty owner id")

	// ErrEmptyName 表示锁名称为空。
	ErrEmptyName = errors.New("lockscript: empty lock name")

	// ErrInvalidTTL 表示 ttl 不是正数。
	ErrInvalidTTL = errors.New("lockscript: ttl must be positive")
)
