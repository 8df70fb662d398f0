package lockexec

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilLocker 表示未提供 Locker 实现。
	ErrNilLocker = errors.New("lockexec: nil locker")

	// ErrEmptyName 表示锁名称为空。
	ErrEmptyName = errors.New("lockexec: empty lock name")

	// ErrInvalidLockAtMostFor 表示 LockAtMostFor 不是正数。
	ErrInvalidLockAtMostFor = errors.New("lockexec: LockAtMostFor must be positive")

	// ErrNilFunc 表示未提供要执行的闭包。
	ErrNilFunc = errors.New("lockexec: nil func")
)
