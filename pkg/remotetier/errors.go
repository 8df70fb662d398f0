package remotetier

import "errors"

// ErrNilClient 表示传入的 kvstore.Client 为 nil。
var ErrNilClient = errors.New("remotetier: nil client")
