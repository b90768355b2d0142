package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh directory for the duration of the test so no
// stray capsule.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "capsule.db", cfg.Store.Path)
	assert.Equal(t, "", cfg.Cache.Addr)
	assert.False(t, cfg.Cache.Enabled())
	assert.Equal(t, "capsule:", cfg.Cache.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "__closure__", cfg.Closure.Key)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoad_File(t *testing.T) {
	dir := chdir(t)
	content := `
store:
  path: /var/lib/capsule/graphs.db
cache:
  addr: localhost:6380
  ttl: 90m
output:
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "capsule.yaml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/capsule/graphs.db", cfg.Store.Path)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "__closure__", cfg.Closure.Key, "unset keys keep defaults")
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := chdir(t)
	home := filepath.Join(dir, ".config", "capsule")
	require.NoError(t, os.MkdirAll(home, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "capsule.yaml"), []byte("closure:\n  key: $env\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "$env", cfg.Closure.Key)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: yaml\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_Environment(t *testing.T) {
	chdir(t)
	t.Setenv("CAPSULE_STORE_PATH", "env.db")
	t.Setenv("CAPSULE_CACHE_TTL", "5m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:   StoreConfig{Path: "x.db"},
			Closure: ClosureConfig{Key: "__closure__"},
			Output:  OutputConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, "output.format must be one of text, json, yaml"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl must not be negative"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path must not be empty"},
		{"empty closure key", func(c *Config) { c.Closure.Key = "" }, "closure.key must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
