package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BaseConfig)
		wantErr string
	}{
		{"defaults", func(*BaseConfig) {}, ""},
		{"zero chunk", func(c *BaseConfig) { c.Performance.ChunkSize = 0 }, "chunk_size"},
		{"negative retries", func(c *BaseConfig) { c.Reliability.RetryAttempts = -1 }, "retry_attempts"},
		{"bad strategy", func(c *BaseConfig) { c.Loader.Strategy = "bulk" }, "strategy"},
		{"bad mapping", func(c *BaseConfig) { c.Loader.TypeMapping = "loose" }, "type_mapping"},
		{"bad sqlite driver", func(c *BaseConfig) { c.Destination.SQLiteDriver = "pg" }, "sqlite_driver"},
		{"negative timeout", func(c *BaseConfig) { c.Timeouts.Statement = -time.Second }, "statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewBaseConfig("t")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("ARROWLOAD_TEST_CHUNK", "250")
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: nightly
performance:
  chunk_size: ${ARROWLOAD_TEST_CHUNK}
loader:
  strategy: insert
  drop_existing: true
timeouts:
  statement: 90s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, 250, cfg.Performance.ChunkSize)
	assert.Equal(t, StrategyInsert, cfg.Loader.Strategy)
	assert.True(t, cfg.Loader.DropExisting)
	assert.True(t, cfg.Loader.Transactional, "unset keys keep their defaults")
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Statement)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loader:\n  type_mapping: loose\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("A_VAR", "x")
	assert.Equal(t, "x-x-", substituteEnvVars("${A_VAR}-${A_VAR}-${MISSING_VAR_FOR_TEST}"))
	assert.Equal(t, "no vars", substituteEnvVars("no vars"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}

func TestFromViperLayersEnvOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("performance:\n  chunk_size: 500\n  workers: 2\n"), 0o600))
	t.Setenv("ARROWLOAD_PERFORMANCE_CHUNK_SIZE", "750")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 750, cfg.Performance.ChunkSize)
	assert.Equal(t, 2, cfg.Performance.Workers)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Connection)
	assert.Equal(t, StrategyAuto, cfg.Loader.Strategy)
}

func TestFromViperDefaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.Performance.ChunkSize)
}
