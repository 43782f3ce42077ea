package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/digestry/digestry/internal/flagx"
	"github.com/digestry/digestry/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, the fields present in the file
// are copied into the runtime Config.
type JsonConfig struct {
	Address        string         `json:"address"`
	Engine         string         `json:"engine"`
	DataDir        string         `json:"data_dir"`
	DatabaseDSN    string         `json:"database_dsn"`
	AccountsPath   string         `json:"accounts_file"`
	AccessPath     string         `json:"access_file"`
	MaxRecordAge   timex.Duration `json:"max_record_age"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
	FlushInterval  timex.Duration `json:"flush_interval"`
	SignatureDrift timex.Duration `json:"signature_drift"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. Fields absent from
// the file keep their current values. An unreadable or invalid file
// panics: a deployment that asks for a config file wants it applied, not
// silently skipped.
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
	if c.Engine != "" {
		config.Engine = c.Engine
	}
	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AccountsPath != "" {
		config.AccountsPath = c.AccountsPath
	}
	if c.AccessPath != "" {
		config.AccessPath = c.AccessPath
	}
	if c.MaxRecordAge.Duration != 0 {
		config.MaxRecordAge = time.Duration(c.MaxRecordAge.Duration)
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	}
	if c.FlushInterval.Duration != 0 {
		config.FlushInterval = time.Duration(c.FlushInterval.Duration)
	}
	if c.SignatureDrift.Duration != 0 {
		config.SignatureDrift = time.Duration(c.SignatureDrift.Duration)
	}
}
