package config

import "time"

// Config holds runtime settings for the shelfctl CLI.
//
// Fields:
//   - ServerURL: base URL of the shelfkeeper HTTP API.
//   - Tenant: tenant selected at start; may be changed with "use".
//   - SessionDB: path of the local SQLite file with saved sessions.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL           string
	Tenant              string
	SessionDB           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Tenant = ""
	c.SessionDB = "shelfctl.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
