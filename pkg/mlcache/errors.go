package mlcache

import "errors"

// =============================================================================
// 通用错误
// =============================================================================

var (
	// ErrNilClient 表示传入的 kvstore.Client 为 nil。
	ErrNilClient = errors.New("mlcache: nil client")

	// ErrRegionNotFound 表示操作引用了未注册的 region。
	ErrRegionNotFound = errors.New("mlcache: region not found")

	// ErrInvalidRegionConfig 表示 RegionConfig 未通过校验。
	ErrInvalidRegionConfig = errors.New("mlcache: invalid region config")

	// ErrNilLoader 表示 GetOrLoad 的 loader 参数为 nil。
	ErrNilLoader = errors.New("mlcache: nil loader")

	// ErrFencedRegionRequiresToken 表示对 fenced region 调用了非 fenced 写入路径。
	ErrFencedRegionRequiresToken = errors.New("mlcache: region is fenced, use PutFenced")

	// ErrLoaderPanicked 表示 loader 在执行期间发生 panic，已被捕获并转换为错误。
	ErrLoaderPanicked = errors.New("mlcache: loader panicked")
)
