package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coopdesk.yaml")
	data := `
model:
  provider: anthropic
  name: claude-sonnet-4
store:
  backend: redis
  ttl: 2h
  redis:
    addr: redis:6379
verification:
  ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4", cfg.Model.Name)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Verification.TTL)
	assert.Equal(t, 12, cfg.Turn.MaxModelCalls, "unset keys keep their default")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COOPDESK_STORE_BACKEND", "sqlite")
	t.Setenv("COOPDESK_TURN_MAX_RETRIES", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Turn.MaxRetries)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "coopdesk.yaml")

	require.NoError(t, WriteDefault(path, false))
	require.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ttl: 10m0s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad provider", func(c *Config) { c.Model.Provider = "gemini" }, "model.provider"},
		{"missing model name", func(c *Config) { c.Model.Name = "" }, "model.name"},
		{"scripted needs no name", func(c *Config) { c.Model.Provider = "scripted"; c.Model.Name = "" }, ""},
		{"bad backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.Redis.Addr = "" }, "store.redis.addr"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = "sqlite"; c.Store.SQLite.Path = "" }, "store.sqlite.path"},
		{"negative retries", func(c *Config) { c.Turn.MaxRetries = -1 }, "turn.max_retries"},
		{"keep recent", func(c *Config) { c.Compaction.KeepRecent = 0 }, "compaction.keep_recent"},
		{"compaction disabled skips checks", func(c *Config) { c.Compaction.Enabled = false; c.Compaction.KeepRecent = 0 }, ""},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"verification ttl", func(c *Config) { c.Verification.TTL = 0 }, "verification.ttl"},
		{"turn timeout", func(c *Config) { c.Turn.Timeout = 0 }, "turn.timeout"},
		{"redis lock ttl", func(c *Config) { c.Store.Backend = "redis"; c.Store.LockTTL = 0 }, "store.lock_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
