// Package config loads runtime settings from a config file, AKA_* environment
// variables and built-in defaults, in that order of precedence below flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"mycelica/aka/internal/resolve"
)

// EnvPrefix prefixes every environment override, e.g. AKA_DB_PATH
const EnvPrefix = "AKA"

type Config struct {
	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`
	Commit struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"commit"`
	Cache struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Resolver struct {
		TrustedCloak string `mapstructure:"trusted_cloak"`
	} `mapstructure:"resolver"`
	Graph struct {
		LegacyAncestor bool `mapstructure:"legacy_ancestor"`
	} `mapstructure:"graph"`
	Log struct {
		Level string `mapstructure:"level"`
		Color bool   `mapstructure:"color"`
	} `mapstructure:"log"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "history.db")
	v.SetDefault("commit.interval", "30s")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("resolver.trusted_cloak", resolve.DefaultTrustedCloak)
	v.SetDefault("graph.legacy_ancestor", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)
}

// New returns a viper instance with defaults and environment overrides set up.
// An empty path means no config file.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Load reads the config file at path (if any) and decodes the result
func Load(path string) (*Config, *viper.Viper, error) {
	v := New(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode unmarshals and validates the current settings of v
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path must not be empty"))
	}
	if c.Commit.Interval <= 0 {
		errs = append(errs, fmt.Errorf("commit.interval must be positive, got %s", c.Commit.Interval))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}
	if _, err := c.TrustedCloak(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TrustedCloak compiles resolver.trusted_cloak
func (c *Config) TrustedCloak() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Resolver.TrustedCloak)
	if err != nil {
		return nil, fmt.Errorf("resolver.trusted_cloak: %w", err)
	}
	return re, nil
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Watch calls fn with the new settings every time the config file changes.
// Changes that fail to decode are logged and skipped.
func Watch(v *viper.Viper, fn func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Decode(v)
		if err != nil {
			slog.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name)
		fn(cfg)
	})
	v.WatchConfig()
}
