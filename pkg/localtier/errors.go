package localtier

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrInvalidMaxEntries 表示 Config.MaxEntries 不是正数。
	ErrInvalidMaxEntries = errors.New("localtier: max entries must be positive")

	// ErrInvalidTTL 表示 Config.TTL 不是正数。
	ErrInvalidTTL = errors.New("localtier: ttl must be positive")
)
