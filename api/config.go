package api

// Config holds the stub backend server configuration.
type Config struct {
	ListenAddr string
}
