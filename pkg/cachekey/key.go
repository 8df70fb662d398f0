package cachekey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

// Generator 根据 operation-id 加参数元组生成稳定的缓存键。
// 零值不可用，须通过 New 构造。
type Generator struct {
	logger xlog.Logger
}

// Option 配置 Generator。
type Option func(*Generator)

// WithLogger 覆盖默认 logger，传入 nil 会被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New 应用给定 options 构造一个 Generator。
func New(opts ...Option) *Generator {
	g := &Generator{logger: xlog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// defaultGenerator 供包级 Generate 便利函数使用，工厂 + 包级默认实例
// 的模式与 xjson 包级 Pretty/PrettyE 一致。
var defaultGenerator = New()

// Generate 是 defaultGenerator 上的包级便利入口。
func Generate(operationID string, args ...any) string {
	return defaultGenerator.Generate(operationID, args...)
}

// Generate 将 (operationID, args) 映射为一个稳定的缓存键。
//
// 空 operationID 会被容忍（operation-id 的唯一性由调用方负责）；Generate
// 永不返回 error，这是设计目标之一——"键生成不能成为读路径上的失败点"，
// 编码失败时退化到下面文档所述的兜底形式，而不是向上传播错误。
func (g *Generator) Generate(operationID string, args ...any) string {
	if len(args) == 0 {
		return operationID
	}

	canonical, err := canonicalEncode(args)
	if err != nil {
		fallback := g.fallbackKey(args)
		// Generate takes no ctx (it must stay on the hot read path's
		// signature), so there is nothing to propagate trace/tenant
		// attrs from here.
		g.logger.Warn(context.Background(), "cachekey: canonical encode failed, using unstable fallback",
			slog.String("operation_id", operationID),
			xlog.Err(err),
		)
		return operationID + ":" + fallback
	}

	sum := sha256.Sum256(canonical)
	return operationID + ":" + hex.EncodeToString(sum[:])
}

// canonicalEncode 对参数元组生成确定性的字节编码。每个参数被独立
// JSON-marshal（channel/func 等不支持的顶层类型会直接报错），对于
// map 类型的参数再走一次排序键的重新编码路径，保证迭代顺序不影响结果。
func canonicalEncode(args []any) ([]byte, error) {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(0x1f) // unit separator, avoids collision with value bytes
		}
		encoded, err := canonicalEncodeValue(arg)
		if err != nil {
			return nil, fmt.Errorf("cachekey: argument %d: %w", i, err)
		}
		sb.Write(encoded)
	}
	return []byte(sb.String()), nil
}

func canonicalEncodeValue(v any) ([]byte, error) {
	// 顶层 map 走一次 map[string]any 解码再编码，保证键顺序不依赖原始
	// map 的迭代顺序。encoding/json 的 Marshal 本身就会对
	// map[string]any 的键排序，这里的往返只是为了防御性地兜住某些
	// 自定义 Marshaler 不遵守这个排序约定的情况。
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		// 无法 JSON 往返的值（例如自定义 MarshalJSON 输出了非 JSON
		// 内容）：对固定输入而言原始字节仍是确定性的，直接使用。
		return raw, nil
	}
	return json.Marshal(sortedGeneric(generic))
}

// sortedGeneric 递归地规范化嵌套的 map[string]any，不暗中依赖
// encoding/json 自身的键排序行为，而是显式地重建一份按键排序的 map。
func sortedGeneric(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]any, len(val))
		for _, k := range keys {
			ordered[k] = sortedGeneric(val[k])
		}
		return ordered
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = sortedGeneric(e)
		}
		return out
	default:
		return val
	}
}

// fallbackKey 用 ":" 拼接每个参数的可读形式，nil 参数映射为字面量 "null"。
func (g *Generator) fallbackKey(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = fmt.Sprintf("%v", arg)
	}
	return strings.Join(parts, ":")
}
