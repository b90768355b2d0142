// Package config loads capsule settings from capsule.yaml and CAPSULE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the capsule configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Closure ClosureConfig `mapstructure:"closure"`
	Output  OutputConfig  `mapstructure:"output"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig configures the optional Redis cache.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a cache address is configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// ClosureConfig names the closure-snapshot attribute.
type ClosureConfig struct {
	Key string `mapstructure:"key"`
}

// OutputConfig sets the default output format.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml"}

// Load reads configuration. With an explicit path that file must exist;
// otherwise capsule.yaml is searched for in the working directory and in
// $HOME/.config/capsule, and a missing file means defaults.
//
// Every key can be overridden from the environment: store.path is
// CAPSULE_STORE_PATH, cache.ttl is CAPSULE_CACHE_TTL, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.path", "capsule.db")
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "capsule:")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("closure.key", "__closure__")
	v.SetDefault("output.format", "text")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("capsule")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "capsule"))
		}
	}

	v.SetEnvPrefix("CAPSULE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Closure.Key == "" {
		return fmt.Errorf("closure.key must not be empty")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", c.Cache.TTL)
	}
	if !ValidFormat(c.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got: %s", strings.Join(Formats, ", "), c.Output.Format)
	}
	return nil
}

// ValidFormat reports whether f is an accepted output format.
func ValidFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
