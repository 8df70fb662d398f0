package platformconf

import (
	"fmt"
	"sync"

	"github.com/latticekit/platformkit/pkg/mlcache"
)

// ExpireConditionFactory builds a mlcache.ExpireCondition. Factories are
// registered by name (RegisterExpireConditionFactory) so a RegionSpec's
// expire-condition-factory string — the only form a func value can take
// in YAML/JSON — can be resolved back into a real predicate at load time.
type ExpireConditionFactory func() mlcache.ExpireCondition

var (
	expireConditionFactoriesMu sync.RWMutex
	expireConditionFactories   = map[string]ExpireConditionFactory{}
)

// RegisterExpireConditionFactory registers factory under name, overwriting
// any previous registration under the same name. Intended to be called
// from an init() or early in process startup, before any config is
// loaded.
func RegisterExpireConditionFactory(name string, factory ExpireConditionFactory) {
	expireConditionFactoriesMu.Lock()
	defer expireConditionFactoriesMu.Unlock()
	expireConditionFactories[name] = factory
}

// resolveExpireCondition looks up name. An empty name resolves to a nil
// ExpireCondition (the region has none configured) with no error.
func resolveExpireCondition(name string) (mlcache.ExpireCondition, error) {
	if name == "" {
		return nil, nil
	}
	expireConditionFactoriesMu.RLock()
	factory, ok := expireConditionFactories[name]
	expireConditionFactoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExpireConditionFactory, name)
	}
	return factory(), nil
}
