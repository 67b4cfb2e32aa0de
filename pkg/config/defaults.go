package config

const (
	defaultClientAPITarget = "http://localhost:8000"
	defaultTimeoutSeconds  = 300

	defaultServeListen = ":8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	streaming := true
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget:      defaultClientAPITarget,
			TimeoutSeconds: defaultTimeoutSeconds,
			Streaming:      &streaming,
		},
		Serve: ServeConfig{
			Listen: defaultServeListen,
		},
	}
}
