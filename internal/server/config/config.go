// Package config handles configuration for the server component,
// including defaults, JSON overlay, command-line flags and environment
// variables.
package config

import "time"

// Storage engine names accepted in Config.Engine.
const (
	EngineMemory   = "memory"
	EngineBadger   = "badger"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

// Config holds runtime settings for the digestry server.
//
// Fields:
//   - Address: UDP bind address for the public endpoint.
//   - Engine: storage engine (memory, badger, sqlite or postgres).
//   - DataDir: directory for the badger engine's files.
//   - DatabaseDSN: sqlite file path or PostgreSQL DSN, per engine.
//   - AccountsPath / AccessPath: credential and access rule files.
//   - MaxRecordAge: eviction age for stale records; zero disables eviction.
//   - SweepInterval / FlushInterval: maintenance cadence.
//   - SignatureDrift: allowed clock skew on signed requests.
type Config struct {
	Address        string
	Engine         string
	DataDir        string
	DatabaseDSN    string
	AccountsPath   string
	AccessPath     string
	MaxRecordAge   time.Duration
	SweepInterval  time.Duration
	FlushInterval  time.Duration
	SignatureDrift time.Duration
}

// LoadDefaults populates Config with local single-operator defaults.
func (c *Config) LoadDefaults() {
	c.Address = "127.0.0.1:24441"
	c.Engine = EngineBadger
	c.DataDir = "./data"
	c.DatabaseDSN = ""
	c.AccountsPath = "./digestry.passwd"
	c.AccessPath = "./digestry.access"
	c.MaxRecordAge = 0
	c.SweepInterval = 24 * time.Hour
	c.FlushInterval = time.Minute
	c.SignatureDrift = 5 * time.Minute
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, command-line flags and finally environment
// variables.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
