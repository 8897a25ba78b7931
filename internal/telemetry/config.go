package telemetry

// Config holds OpenTelemetry tracer configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
	SampleRate     float64
}

// DefaultConfig returns a disabled, locally-sane configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "rxs-server",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
