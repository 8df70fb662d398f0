// Package platformconf loads and hot-reloads the two configuration shapes
// the platform needs: one process-wide config (remote KV endpoint,
// invalidation channel, process identity, default lock hold windows) and
// one region-config map (one entry per pkg/mlcache region).
//
// # Design philosophy
//
// platformconf stays a minimal loader: file/byte loading, deserialization,
// and hot-reload. It does not own field validation or default injection
// beyond what's needed to turn a parsed map into a mlcache.RegionConfig or
// a ProcessConfig — that belongs to the caller composing the platform.
//
// The loading, reload, and watch mechanics follow the same pattern used
// elsewhere in this module for koanf-backed config:
//   - Factory functions: New, NewFromBytes
//   - Client() exposes the underlying koanf instance
//   - Concurrency-safe Reload() via a sync.RWMutex-guarded swap of the
//     koanf instance
//
// # Supported formats
//
//   - YAML (default, recommended): .yaml, .yml
//   - JSON: .json
//
// # Region config and ExpireCondition
//
// mlcache.RegionConfig.ExpireCondition is a Go function value and cannot
// be expressed in YAML/JSON. RegionSpec carries an ExpireConditionFactory
// name string instead (the "expire-condition-factory" field); callers
// register named factories with RegisterExpireConditionFactory and
// ToRegionConfig resolves the name at load time.
//
// # Hot-reload and region conflict detection
//
// Watch follows the same fsnotify + debounce design as the base loader.
// Delivering a reloaded RegionSpec map does not bypass
// mlcache.Cache.RegisterRegion's conflict detection: a region already
// registered with different fields is still rejected and logged, not
// replaced. Hot-reload is therefore most useful for region maps that add
// new regions or change process-wide defaults, not for redefining an
// already-active region's shape.
package platformconf
