package platformconf_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticekit/platformkit/pkg/config/platformconf"
)

const testDocYAML = `
process:
  remote-kv-endpoint: "redis://localhost:6379"
  invalidation-channel: "cache-invalidation"
  process-identity: "proc-1"
  lock-at-most-for-default: 10s
  lock-at-least-for-default: 500ms

regions:
  users:
    l1-enabled: true
    l1-ttl: 30s
    l1-max-entries: 10000
    l2-enabled: true
    l2-ttl: 5m
`

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_LoadsFromFile(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", testDocYAML)

	cfg, err := platformconf.New(path)
	require.NoError(t, err)
	assert.Equal(t, platformconf.FormatYAML, cfg.Format())
	assert.Equal(t, path, cfg.Path())

	pc, err := platformconf.LoadProcessConfig(cfg, "process")
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", pc.RemoteKVEndpoint)
	assert.Equal(t, 10*time.Second, pc.LockAtMostForDefault)
}

func TestNew_RejectsEmptyPath(t *testing.T) {
	_, err := platformconf.New("")
	assert.ErrorIs(t, err, platformconf.ErrEmptyPath)
}

func TestNew_RejectsUnknownExtension(t *testing.T) {
	path := writeTempConfig(t, "config.toml", "x = 1")
	_, err := platformconf.New(path)
	assert.ErrorIs(t, err, platformconf.ErrUnsupportedFormat)
}

func TestNewFromBytes_RequiresExplicitFormat(t *testing.T) {
	_, err := platformconf.NewFromBytes([]byte(testDocYAML), "")
	assert.ErrorIs(t, err, platformconf.ErrUnsupportedFormat)
}

func TestNewFromBytes_EmptyDataIsAnEmptyConfig(t *testing.T) {
	cfg, err := platformconf.NewFromBytes(nil, platformconf.FormatYAML)
	require.NoError(t, err)

	var pc platformconf.ProcessConfig
	require.NoError(t, cfg.Unmarshal("process", &pc))
	assert.Equal(t, platformconf.ProcessConfig{}, pc)
}

func TestReload_PicksUpChanges(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", testDocYAML)
	cfg, err := platformconf.New(path)
	require.NoError(t, err)

	pc, err := platformconf.LoadProcessConfig(cfg, "process")
	require.NoError(t, err)
	assert.Equal(t, "proc-1", pc.ProcessIdentity)

	updated := `
process:
  process-identity: "proc-2"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, cfg.Reload())

	pc, err = platformconf.LoadProcessConfig(cfg, "process")
	require.NoError(t, err)
	assert.Equal(t, "proc-2", pc.ProcessIdentity)
}

func TestReload_RejectedForBytesConfig(t *testing.T) {
	cfg, err := platformconf.NewFromBytes([]byte(testDocYAML), platformconf.FormatYAML)
	require.NoError(t, err)
	assert.Error(t, cfg.Reload())
}
