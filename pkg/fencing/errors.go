package fencing

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilClient 表示传入的 kvstore.Client 为 nil。
	ErrNilClient = errors.New("fencing: nil client")

	// ErrRemoteUnavailable 表示远端在 validate-and-store 期间不可用；
	// 按 spec 的 fail-open 策略，调用方仍会收到 accepted=true。
	ErrRemoteUnavailable = errors.New("fencing: remote unavailable during validation, failing open")
)
