package config

// ApplyDefaults fills in unset fields with spec-mandated defaults. Zero
// values (0, "", false) are replaced; anything explicitly set by the file or
// environment is preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.TableName == "" {
		cfg.TableName = "locks"
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = "locks"
	}
	if cfg.LeaseDefaultExpirationSeconds == 0 {
		cfg.LeaseDefaultExpirationSeconds = 86400
	}
	if cfg.LeaseAcquirementIntervalSeconds == 0 {
		cfg.LeaseAcquirementIntervalSeconds = 5
	}

	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9090"
	}
}
