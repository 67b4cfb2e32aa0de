package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent emission configuration stored as
// config.toml in the .emission/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Serve   ServeConfig  `toml:"serve"`
}

// ClientConfig holds settings for CLI commands that connect to the
// assistant backend (e.g. emission chat, emission sessions). APITarget is
// a full URL (scheme + host + port).
type ClientConfig struct {
	APITarget      string `toml:"api_target,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
	Streaming      *bool  `toml:"streaming,omitempty"`
}

// UseStreaming reports whether chat turns should use the streaming
// endpoint. Unset means streaming on.
func (c ClientConfig) UseStreaming() bool {
	return c.Streaming == nil || *c.Streaming
}

// ServeConfig holds settings for the bundled stub backend server.
type ServeConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.timeout_seconds": {
		get: func(c *Config) string {
			if c.Client.TimeoutSeconds == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.TimeoutSeconds), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.timeout_seconds: %w", err)
			}
			c.Client.TimeoutSeconds = uint(n)
			return nil
		},
	},
	"client.streaming": {
		get: func(c *Config) string {
			if c.Client.Streaming == nil {
				return ""
			}
			return strconv.FormatBool(*c.Client.Streaming)
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.streaming: %w", err)
			}
			c.Client.Streaming = &b
			return nil
		},
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
}
