package config

import "time"

// Config holds runtime settings for authctl.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
}

// GlobalFlags are consumed by the config loader and must be stripped before
// subcommand parsing.
var GlobalFlags = []string{"-a", "-w", "-c", "-config"}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
