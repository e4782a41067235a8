package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/keyedpool/pool"
)

const sample = `
storage:
  exclusive_use: true
  strategy: lifo
  max_count_per_key: 4
  throw_on_limit: true
eviction:
  sweep_interval: 30s
  max_idle: ${KEYEDPOOL_TEST_IDLE}
decorators:
  single_use: true
  reset: true
controller:
  release_will_happen: true
direction:
  attempts: 3
  interval: 250ms
log:
  level: debug
  encoding: console
`

func TestLoad_FileWithEnv(t *testing.T) {
	t.Setenv("KEYEDPOOL_TEST_IDLE", "2m")
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, pool.StorageSettings{
		ExclusiveUse:   true,
		Strategy:       pool.FavorMostRecentlyUsed,
		MaxCountPerKey: 4,
		ThrowOnLimit:   true,
	}, cfg.StorageSettings())
	assert.Equal(t, pool.EvictionSettings{SweepInterval: 30 * time.Second, MaxIdle: 2 * time.Minute}, cfg.EvictionSettings())
	assert.True(t, cfg.ControllerSettings().ReleaseWillHappen)

	dir := NewDirection[string, int](cfg, nil)
	assert.Equal(t, 3, dir.Attempts)
	assert.Equal(t, 250*time.Millisecond, dir.Interval)

	l, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Eviction.Enabled())
	assert.Equal(t, pool.DistributeAmongAll, cfg.StorageSettings().Strategy)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
storage:
  exclusive_use: false
  strategy: random
  max_count_per_key: -2
decorators:
  single_use: true
direction:
  attempts: 0
log:
  level: loud
`))
	require.Error(t, err)
	for _, want := range []string{"strategy", "MaxCountPerKey", "single_use", "attempts", "log level"} {
		assert.Contains(t, err.Error(), want)
	}

	_, err = Parse([]byte("storage: [oops"))
	require.ErrorContains(t, err, "failed to parse YAML")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("KEYEDPOOL_A", "x")
	assert.Equal(t, "x-$B-", substituteEnvVars("${KEYEDPOOL_A}-$B-${KEYEDPOOL_UNSET_VAR}"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}

// Apply builds a working controller from the file settings.
func TestApply_BuildsPool(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
storage: {exclusive_use: true, max_count_per_key: 1}
eviction: {max_idle: 1m}
decorators: {single_use: true, reset: true}
`))
	require.NoError(t, err)

	type res struct{ id int }
	b := pool.NewBuilder[string, *res](pool.Options[string, *res]{Storage: cfg.StorageSettings()})
	ctrl, err := Apply(cfg, b).Build(cfg.ControllerSettings())
	require.NoError(t, err)
	t.Cleanup(ctrl.Dispose)

	dir := NewDirection[string, *res](cfg, func(string) (*res, error) { return &res{id: 1}, nil })
	v, ok, err := ctrl.Obtain("k", dir)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = ctrl.Obtain("k", dir)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, ctrl.Release(v))
}
