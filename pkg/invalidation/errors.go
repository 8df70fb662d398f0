package invalidation

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilClient 表示传入的 kvstore.Client 为 nil。
	ErrNilClient = errors.New("invalidation: nil client")

	// ErrEmptyOriginatorID 表示传入的 originator-id 为空字符串。
	ErrEmptyOriginatorID = errors.New("invalidation: empty originator id")

	// ErrNilHandler 表示 Subscribe 的 handler 参数为 nil。
	ErrNilHandler = errors.New("invalidation: nil handler")
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "cache-invalidation"

// WildcardKey means "drop all of region".
const WildcardKey = "*"
