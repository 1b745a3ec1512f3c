package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{StorageConnectionString: "UseDevelopmentStorage=true"}
	ApplyDefaults(cfg)

	assert.Equal(t, "locks", cfg.TableName)
	assert.Equal(t, "locks", cfg.ContainerName)
	assert.Equal(t, 86400, cfg.LeaseDefaultExpirationSeconds)
	assert.Equal(t, 5, cfg.LeaseAcquirementIntervalSeconds)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		StorageConnectionString:        "conn",
		TableName:                      "custom-locks",
		LeaseDefaultExpirationSeconds:  60,
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "custom-locks", cfg.TableName)
	assert.Equal(t, 60, cfg.LeaseDefaultExpirationSeconds)
}

func TestValidateRejectsMissingConnectionString(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StorageConnectionString")
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := &Config{StorageConnectionString: "conn", LeaseDefaultExpirationSeconds: -1}
	ApplyDefaults(cfg)
	cfg.LeaseDefaultExpirationSeconds = -1 // ApplyDefaults only fills zero values

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LeaseDefaultExpirationSeconds")
}

func TestValidatePassesForDefaultedConfig(t *testing.T) {
	cfg := &Config{StorageConnectionString: "conn"}
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_connection_string: "UseDevelopmentStorage=true"
table_name: "mylocks"
lease_default_expiration_seconds: 120
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mylocks", cfg.TableName)
	assert.Equal(t, 120, cfg.LeaseDefaultExpirationSeconds)
	assert.Equal(t, "locks", cfg.ContainerName) // default applied
}

func TestLoadMissingFileReturnsValidationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StorageConnectionString")
}

func TestLoadAppliesEnvOverridesWithNoConfigFile(t *testing.T) {
	t.Setenv("GLOBALLOCK_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("GLOBALLOCK_TABLE_NAME", "envlocks")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "UseDevelopmentStorage=true", cfg.StorageConnectionString)
	assert.Equal(t, "envlocks", cfg.TableName)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{StorageConnectionString: "conn"}
	ApplyDefaults(cfg)
	require.NoError(t, Save(cfg, path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.TableName, reloaded.TableName)
	assert.Equal(t, cfg.StorageConnectionString, reloaded.StorageConnectionString)
}
