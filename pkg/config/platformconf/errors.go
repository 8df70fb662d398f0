package platformconf

import "errors"

// 配置加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("platformconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("platformconf: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("platformconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("platformconf: failed to parse config")

	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("platformconf: failed to unmarshal config")

	// ErrNotFromFile 表示操作仅支持从文件创建的配置实例。
	ErrNotFromFile = errors.New("platformconf: operation not supported for config created from bytes")

	// ErrWatchFailed 表示创建文件监视器失败。
	ErrWatchFailed = errors.New("platformconf: failed to create watcher")

	// ErrInvalidDebounce 表示无效的防抖时间。
	ErrInvalidDebounce = errors.New("platformconf: invalid debounce duration")

	// ErrNilCallback 表示 Watch 回调函数为 nil。
	ErrNilCallback = errors.New("platformconf: nil watch callback")

	// ErrInvalidTag 表示无效的结构体标签名。
	ErrInvalidTag = errors.New("platformconf: invalid struct tag")

	// ErrUnknownExpireConditionFactory 表示 region 配置引用了未注册的
	// expire-condition-factory 名称。
	ErrUnknownExpireConditionFactory = errors.New("platformconf: unknown expire-condition-factory")

	// ErrEmptyRegionName 表示区域配置映射中出现了空名称的 key。
	ErrEmptyRegionName = errors.New("platformconf: empty region name")
)
