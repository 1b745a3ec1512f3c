package telemetry

// Config holds OpenTelemetry tracing configuration for the coordinator.
type Config struct {
	// Enabled turns tracing on; when false Tracer() returns a no-op tracer.
	Enabled bool

	// ServiceName is reported to the trace backend as the resource's
	// service.name attribute.
	ServiceName string

	// ServiceVersion is reported as service.version.
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS on the OTLP connection.
	Insecure bool

	// SampleRate is the trace sampling ratio in [0.0, 1.0].
	SampleRate float64
}

// DefaultConfig returns the configuration used when telemetry is disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "globallock",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
