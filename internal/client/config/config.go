package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the digestry CLI.
//
// Fields:
//   - Address: host:port of the server UDP endpoint.
//   - AccountsPath: client accounts file holding per-server keys.
//   - Timeout: how long one request may wait for its response.
//   - User: account username genkey embeds in the generated lines.
type Config struct {
	Address      string
	AccountsPath string
	Timeout      time.Duration
	User         string
}

// LoadDefaults populates c with sensible defaults. The accounts file
// defaults to ~/.digestry/accounts; when the home directory cannot be
// resolved the path stays relative to the working directory.
func (c *Config) LoadDefaults() {
	c.Address = "127.0.0.1:24441"
	c.AccountsPath = filepath.Join(".digestry", "accounts")
	if home, err := os.UserHomeDir(); err == nil {
		c.AccountsPath = filepath.Join(home, ".digestry", "accounts")
	}
	c.Timeout = 5 * time.Second
	c.User = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), command-line flags and environment variables.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
