package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeJSONConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"digestry", "-c", path}
}

func TestParseJson(t *testing.T) {
	writeJSONConfig(t, `{
		"address": "other.host:24441",
		"accounts_file": "/etc/digestry/accounts",
		"timeout": 1500000000,
		"user": "reporter"
	}`)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	require.Equal(t, "other.host:24441", cfg.Address)
	require.Equal(t, "/etc/digestry/accounts", cfg.AccountsPath)
	require.Equal(t, 1500*time.Millisecond, cfg.Timeout, "numeric durations are nanoseconds")
	require.Equal(t, "reporter", cfg.User)
}

func TestParseJsonPartial(t *testing.T) {
	writeJSONConfig(t, `{"user": "reporter"}`)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	require.Equal(t, "reporter", cfg.User)
	require.Equal(t, "127.0.0.1:24441", cfg.Address, "absent fields keep their values")
	require.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestParseJsonNoFlag(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"digestry"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	want := &Config{}
	want.LoadDefaults()
	require.Equal(t, want, cfg)
}
