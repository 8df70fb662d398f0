package platformconf

import (
	"time"

	"github.com/latticekit/platformkit/pkg/mlcache"
)

// RegionSpec is the koanf-unmarshalable shape of one cache region's
// configuration entry, matching the recognised per-region options
// mlcache.RegionConfig accepts.
type RegionSpec struct {
	L1Enabled              bool          `koanf:"l1-enabled"`
	L1TTL                  time.Duration `koanf:"l1-ttl"`
	L1MaxEntries           int           `koanf:"l1-max-entries"`
	LocalAsFallback        bool          `koanf:"local-as-fallback"`
	L2Enabled              bool          `koanf:"l2-enabled"`
	L2TTL                  time.Duration `koanf:"l2-ttl"`
	ExpireConditionFactory string        `koanf:"expire-condition-factory"`
	CacheNulls             bool          `koanf:"cache-nulls"`
	NullTTL                time.Duration `koanf:"null-ttl"`
	Fenced                 bool          `koanf:"fenced"`
}

// LoadRegions unmarshals cfg at path into a name-to-spec map, one entry
// per region. path is typically a top-level key such as "regions".
func LoadRegions(cfg Config, path string) (map[string]RegionSpec, error) {
	regions := map[string]RegionSpec{}
	if err := cfg.Unmarshal(path, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// ToRegionConfig converts a named RegionSpec into a mlcache.RegionConfig,
// resolving ExpireConditionFactory through the registry populated by
// RegisterExpireConditionFactory. The result still needs to pass through
// mlcache.Cache.RegisterRegion, which performs the actual field
// validation and divergent-re-registration detection.
func ToRegionConfig(name string, spec RegionSpec) (mlcache.RegionConfig, error) {
	if name == "" {
		return mlcache.RegionConfig{}, ErrEmptyRegionName
	}

	condition, err := resolveExpireCondition(spec.ExpireConditionFactory)
	if err != nil {
		return mlcache.RegionConfig{}, err
	}

	return mlcache.RegionConfig{
		Name:            name,
		L1Enabled:       spec.L1Enabled,
		L1TTL:           spec.L1TTL,
		L1MaxEntries:    spec.L1MaxEntries,
		L2Enabled:       spec.L2Enabled,
		L2TTL:           spec.L2TTL,
		LocalAsFallback: spec.LocalAsFallback,
		ExpireCondition: condition,
		CacheNulls:      spec.CacheNulls,
		NullTTL:         spec.NullTTL,
		Fenced:          spec.Fenced,
	}, nil
}

// ToRegionConfigs converts every entry of regions, stopping at the first
// error (an unknown expire-condition-factory reference).
func ToRegionConfigs(regions map[string]RegionSpec) ([]mlcache.RegionConfig, error) {
	configs := make([]mlcache.RegionConfig, 0, len(regions))
	for name, spec := range regions {
		cfg, err := ToRegionConfig(name, spec)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
