package config

import (
	"os"
	"time"
)

func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.Address = v
	}
	if v := os.Getenv("ACCOUNTS_FILE"); v != "" {
		config.AccountsPath = v
	}
	if v := os.Getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.Timeout = d
	}
}
