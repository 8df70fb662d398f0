package mlcache

import (
	"reflect"
	"time"
)

// ExpireCondition is a user-supplied, side-effect-free predicate over a
// cached value's decoded shape. It is evaluated by the
// Cache Coordinator, never by the local or remote tier.
type ExpireCondition func(region, hashKey string, value any) bool

// RegionConfig is the immutable configuration for one named cache
// namespace.
type RegionConfig struct {
	// Name identifies the region and doubles as its key prefix.
	Name string

	// L1Enabled toggles the local tier for this region.
	L1Enabled bool
	// L1TTL is the per-entry local TTL; must be > 0 when L1Enabled.
	L1TTL time.Duration
	// L1MaxEntries bounds the local tier's size; must be > 0 when
	// L1Enabled.
	L1MaxEntries int

	// L2Enabled toggles the remote tier for this region.
	L2Enabled bool
	// L2TTL is the remote TTL; must be > 0 when L2Enabled.
	L2TTL time.Duration

	// LocalAsFallback takes part only in the re-registration comparison;
	// it does not change how remote-tier errors are handled. Whatever its
	// value, L1 hits are served before L2 is consulted, an L2 read error
	// on an L1 miss is returned to the caller, and an L2 write failure is
	// logged while the call carries on without returning it.
	LocalAsFallback bool

	// ExpireCondition, if set, is evaluated on every cache hit; a true
	// result evicts both tiers and the value is treated as absent.
	ExpireCondition ExpireCondition

	// CacheNulls, if true, memoizes a loader's "absent" result using the
	// Null Sentinel with NullTTL.
	CacheNulls bool
	// NullTTL is the TTL applied to a cached null; recommended <= the
	// tier TTLs, but not enforced.
	NullTTL time.Duration

	// Fenced requires a valid fencing token on every write via PutFenced;
	// Put is rejected for fenced regions.
	Fenced bool
}

func (c RegionConfig) validate() error {
	if c.Name == "" {
		return ErrInvalidRegionConfig
	}
	if c.L1Enabled && (c.L1TTL <= 0 || c.L1MaxEntries <= 0) {
		return ErrInvalidRegionConfig
	}
	if c.L2Enabled && c.L2TTL <= 0 {
		return ErrInvalidRegionConfig
	}
	if c.CacheNulls && c.NullTTL <= 0 {
		return ErrInvalidRegionConfig
	}
	return nil
}

// sameConfig reports whether two RegionConfig values are field-for-field
// equal, ignoring the ExpireCondition function value (funcs are never
// comparable) and comparing only whether one was supplied in both.
//
// Used to detect a divergent re-registration: "a later
// registration with divergent fields must be detected and logged without
// replacing the active configuration."
func sameConfig(a, b RegionConfig) bool {
	aCopy, bCopy := a, b
	hasConditionA := aCopy.ExpireCondition != nil
	hasConditionB := bCopy.ExpireCondition != nil
	aCopy.ExpireCondition, bCopy.ExpireCondition = nil, nil
	return hasConditionA == hasConditionB && reflect.DeepEqual(aCopy, bCopy)
}
