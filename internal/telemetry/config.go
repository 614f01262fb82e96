package telemetry

import "github.com/felixgeelhaar/plugin-compat-tester/internal/version"

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled determines whether tracing is enabled.
	// When false, a noop tracer is used.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector as host:port.
	// If empty, spans are recorded but not exported.
	Endpoint string

	// Insecure exports over plain HTTP.
	Insecure bool

	// SampleRate is the fraction of runs to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a disabled configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "pct",
		ServiceVersion: version.GetInfo().Version,
		SampleRate:     1.0,
	}
}

// ForEndpoint enables tracing when endpoint is set. A run is a single trace,
// so every run is sampled.
func ForEndpoint(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = endpoint != ""
	cfg.Endpoint = endpoint
	return cfg
}
