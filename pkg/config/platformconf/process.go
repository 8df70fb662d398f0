package platformconf

import "time"

// ProcessConfig is the process-wide configuration shape: the remote KV
// endpoint, the invalidation-bus channel name, this process's identity
// (owner-id/originator-id), and the default Lock-Scoped Execution hold
// windows used when a call site doesn't override them.
type ProcessConfig struct {
	// RemoteKVEndpoint addresses the shared Remote KV Client connection
	// (e.g. a Redis URL or sentinel/cluster address list).
	RemoteKVEndpoint string `koanf:"remote-kv-endpoint"`

	// InvalidationChannel is the pub/sub channel name the Invalidation
	// Bus publishes to and subscribes on. Empty means the bus's own
	// default ("cache-invalidation").
	InvalidationChannel string `koanf:"invalidation-channel"`

	// ProcessIdentity is this process's configured owner-id/originator-id.
	// Empty means pkg/identity.New generates a fresh one at startup.
	ProcessIdentity string `koanf:"process-identity"`

	// LockAtMostForDefault is the default maximum lock hold duration for
	// Lock-Scoped Execution calls that don't set their own.
	LockAtMostForDefault time.Duration `koanf:"lock-at-most-for-default"`

	// LockAtLeastForDefault is the default minimum lock hold duration.
	LockAtLeastForDefault time.Duration `koanf:"lock-at-least-for-default"`
}

// LoadProcessConfig unmarshals cfg at path into a ProcessConfig. path is
// typically "" (the whole document) or a top-level key like "process"
// when the document also carries a region map alongside it.
func LoadProcessConfig(cfg Config, path string) (ProcessConfig, error) {
	var pc ProcessConfig
	if err := cfg.Unmarshal(path, &pc); err != nil {
		return ProcessConfig{}, err
	}
	return pc, nil
}
