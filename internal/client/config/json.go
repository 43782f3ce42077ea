package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/digestry/digestry/internal/flagx"
	"github.com/digestry/digestry/internal/timex"
)

// JsonConfig is the DTO for the optional JSON config file. Fields absent
// from the file keep their current values in Config.
type JsonConfig struct {
	Address      string         `json:"address"`
	AccountsPath string         `json:"accounts_file"`
	Timeout      timex.Duration `json:"timeout"`
	User         string         `json:"user"`
}

func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Address != "" {
		config.Address = c.Address
	}
	if c.AccountsPath != "" {
		config.AccountsPath = c.AccountsPath
	}
	if c.Timeout.Duration != 0 {
		config.Timeout = time.Duration(c.Timeout.Duration)
	}
	if c.User != "" {
		config.User = c.User
	}
}
