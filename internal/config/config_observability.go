package config

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level sets the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects "json" or "text" output. Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes pipeline metrics over HTTP while a command runs.
	Enabled bool `yaml:"enabled"`

	// Listen is the metrics listen address. Default: ":9090"
	Listen string `yaml:"listen"`
}

// TracingConfig controls OpenTelemetry trace export.
type TracingConfig struct {
	// Enabled turns tracing on. With no endpoint set, spans are
	// recorded into a no-op provider.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string `yaml:"endpoint"`

	// ServiceName identifies this process in traces. Default: "distill"
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is stamped on exported spans.
	ServiceVersion string `yaml:"service_version"`

	// Environment tags spans with a deployment environment.
	Environment string `yaml:"environment"`

	// SamplingRate is the fraction of traces to sample, 0 to 1.
	// Default: 1.0
	SamplingRate float64 `yaml:"sampling_rate"`

	// Insecure disables TLS on the exporter connection.
	Insecure bool `yaml:"insecure"`

	// Attributes are extra resource attributes for every span.
	Attributes map[string]string `yaml:"attributes"`
}
