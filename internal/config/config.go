// Package config loads the layered application configuration.
//
// Values are resolved in order of precedence:
//
//  1. Environment variables prefixed LISTINGS_ (LISTINGS_REMOTE_API_KEY)
//  2. A .env file in the working or config directory
//  3. config.toml in the config directory
//  4. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "LISTINGS"

// FileName is the TOML file read from the config directory.
const FileName = "config.toml"

// Config holds all configuration for the application.
type Config struct {
	Remote    RemoteConfig    `mapstructure:"remote"`
	Store     StoreConfig     `mapstructure:"store"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RemoteConfig selects and configures the listing source.
type RemoteConfig struct {
	Kind              domain.RemoteKind   `mapstructure:"kind"`
	BaseURL           string              `mapstructure:"base_url"`
	APIKey            string              `mapstructure:"api_key"`
	Token             string              `mapstructure:"token"`
	Path              string              `mapstructure:"path"`
	Format            domain.RecordFormat `mapstructure:"format"`
	RequestsPerMinute int                 `mapstructure:"requests_per_minute"`
}

// StoreConfig selects and configures the local cache.
type StoreConfig struct {
	Driver  domain.StoreDriver `mapstructure:"driver"`
	DataDir string             `mapstructure:"data_dir"`
	DSN     string             `mapstructure:"dsn"`
}

// SyncConfig tunes the sync policy.
type SyncConfig struct {
	RetainQuery bool `mapstructure:"retain_query"`
}

// SchedulerConfig controls background refresh.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// Load reads configuration for configDir. An empty configDir uses ~/.listings.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".listings")
	}

	loadDotEnv(".env", filepath.Join(configDir, ".env"))

	v := viper.New()
	setDefaults(v)

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range Keys {
		if err := v.BindEnv(k.Name); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", k.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = filepath.Join(configDir, "data")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads each file that exists. Existing variables win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warn("config: could not load %s: %v", p, err)
			continue
		}
		logger.Debug("config: loaded %s", p)
	}
}

func setDefaults(v *viper.Viper) {
	for _, k := range Keys {
		if k.Default != nil {
			v.SetDefault(k.Name, k.Default)
		}
	}
}

// Validate checks that the selected backends are fully configured.
func (c *Config) Validate() error {
	var errs []error

	if !c.Remote.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("remote.kind %q: %w", c.Remote.Kind, domain.ErrUnsupportedType))
	}
	if c.Remote.Kind.RequiresAPIKey() && strings.TrimSpace(c.Remote.APIKey) == "" {
		errs = append(errs, fmt.Errorf("remote.api_key is required for %s: %w", c.Remote.Kind, domain.ErrInvalidInput))
	}
	if c.Remote.Kind == domain.RemoteKindFile && strings.TrimSpace(c.Remote.Path) == "" {
		errs = append(errs, fmt.Errorf("remote.path is required for file: %w", domain.ErrInvalidInput))
	}
	if !c.Remote.Format.IsValid() {
		errs = append(errs, fmt.Errorf("remote.format %q: %w", c.Remote.Format, domain.ErrUnsupportedType))
	}
	if c.Remote.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("remote.requests_per_minute must not be negative: %w", domain.ErrInvalidInput))
	}

	if !c.Store.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("store.driver %q: %w", c.Store.Driver, domain.ErrUnsupportedType))
	}
	if c.Store.Driver == domain.StoreDriverPostgres && strings.TrimSpace(c.Store.DSN) == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for postgres: %w", domain.ErrInvalidInput))
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be positive: %w", domain.ErrInvalidInput))
	}

	return errors.Join(errs...)
}

// SyncSettings returns the sync policy settings.
func (c *Config) SyncSettings() domain.SyncSettings {
	return domain.SyncSettings{RetainQuery: c.Sync.RetainQuery}
}

// SchedulerConfig returns the scheduler configuration with the configured interval.
func (c *Config) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = c.Scheduler.Enabled
	cfg.TaskConfigs[domain.TaskIDListingsRefresh] = domain.TaskConfig{
		Enabled:  c.Scheduler.Enabled,
		Interval: c.Scheduler.Interval,
	}
	return cfg
}
