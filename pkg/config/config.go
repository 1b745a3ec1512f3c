// Package config loads and validates globallock's configuration: the
// storage backend connection, journal/blob naming, lease timing, and the
// ambient logging/telemetry/metrics settings.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (GLOBALLOCK_*)
//  2. A YAML configuration file
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is globallock's static configuration.
type Config struct {
	// StorageConnectionString is the credential for the Azure Storage
	// account backing both the journal table and the blob-lease container.
	StorageConnectionString string `mapstructure:"storage_connection_string" yaml:"storage_connection_string" validate:"required"`

	// TableName is the journal table name. Default "locks".
	TableName string `mapstructure:"table_name" yaml:"table_name" validate:"required"`

	// ContainerName is the blob-lease container name. Default "locks".
	ContainerName string `mapstructure:"container_name" yaml:"container_name" validate:"required"`

	// LeaseDefaultExpirationSeconds is the default journal lease TTL.
	// Default 86400 (24h).
	LeaseDefaultExpirationSeconds int `mapstructure:"lease_default_expiration_seconds" yaml:"lease_default_expiration_seconds" validate:"gt=0"`

	// LeaseAcquirementIntervalSeconds is the waiter-queue ticker period.
	// Default 5.
	LeaseAcquirementIntervalSeconds int `mapstructure:"lease_acquirement_interval_seconds" yaml:"lease_acquirement_interval_seconds" validate:"gt=0"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics controls the Prometheus metrics exporter.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// TelemetryConfig controls OpenTelemetry tracing export.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig controls the Prometheus metrics HTTP listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Load reads configuration from configPath (or the default search path when
// empty), layers in GLOBALLOCK_* environment overrides, applies defaults for
// anything left unset, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// AutomaticEnv only affects Get/Sub lookups, not Unmarshal, unless
	// viper already knows the key exists — bind every field explicitly so
	// an env-only process (no config file at all) still populates cfg.
	if err := bindEnvKeys(v); err != nil {
		return nil, fmt.Errorf("bind env keys: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML with restricted permissions, since the
// connection string is a credential.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("GLOBALLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// configKeys lists every mapstructure-tagged key Config exposes, so
// bindEnvKeys can register each one with viper ahead of Unmarshal.
var configKeys = []string{
	"storage_connection_string",
	"table_name",
	"container_name",
	"lease_default_expiration_seconds",
	"lease_acquirement_interval_seconds",
	"logging.level",
	"logging.format",
	"logging.output",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.insecure",
	"telemetry.sample_rate",
	"metrics.enabled",
	"metrics.listen_addr",
}

// bindEnvKeys explicitly binds each configuration key to its GLOBALLOCK_*
// environment variable. AutomaticEnv alone only resolves keys viper already
// knows about (from a config file or a prior SetDefault/BindEnv call), so
// without this an env-only process — no config file anywhere — would see
// none of its GLOBALLOCK_* overrides reach Unmarshal.
func bindEnvKeys(v *viper.Viper) error {
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "globallock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "globallock")
}
