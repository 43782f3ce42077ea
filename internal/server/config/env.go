package config

import (
	"os"
	"time"
)

// parseEnv overlays environment variables onto the Config. Environment
// wins over flags so containerized deployments can override baked-in
// command lines. Duration variables take time.ParseDuration syntax; an
// unparseable value panics like any other invalid configuration.
func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.Address = v
	}
	if v := os.Getenv("ENGINE"); v != "" {
		config.Engine = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		config.DataDir = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("ACCOUNTS_FILE"); v != "" {
		config.AccountsPath = v
	}
	if v := os.Getenv("ACCESS_FILE"); v != "" {
		config.AccessPath = v
	}
	if v := os.Getenv("MAX_RECORD_AGE"); v != "" {
		config.MaxRecordAge = mustParseDuration(v)
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		config.SweepInterval = mustParseDuration(v)
	}
	if v := os.Getenv("FLUSH_INTERVAL"); v != "" {
		config.FlushInterval = mustParseDuration(v)
	}
}

func mustParseDuration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	return d
}
