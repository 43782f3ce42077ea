package config

import (
	"flag"
	"os"

	"github.com/digestry/digestry/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     UDP bind address (e.g., "127.0.0.1:24441")
//	-e string     storage engine: memory, badger, sqlite, postgres
//	-w string     data directory for the badger engine
//	-d string     sqlite file path or PostgreSQL DSN
//	-u string     accounts file path
//	-x string     access rule file path
//	-m duration   max record age before eviction, e.g. "720h" (0 disables)
//	-s duration   sweep interval
//	-f duration   flush interval
//	-g duration   allowed signature clock drift
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-e", "-w", "-d", "-u", "-x", "-m", "-s", "-f", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Address, "a", config.Address, "address and port to listen on")
	fs.StringVar(&config.Engine, "e", config.Engine, "storage engine")
	fs.StringVar(&config.DataDir, "w", config.DataDir, "data directory")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccountsPath, "u", config.AccountsPath, "accounts file")
	fs.StringVar(&config.AccessPath, "x", config.AccessPath, "access rule file")
	fs.DurationVar(&config.MaxRecordAge, "m", config.MaxRecordAge, "max record age, 0 disables eviction")
	fs.DurationVar(&config.SweepInterval, "s", config.SweepInterval, "sweep interval")
	fs.DurationVar(&config.FlushInterval, "f", config.FlushInterval, "flush interval")
	fs.DurationVar(&config.SignatureDrift, "g", config.SignatureDrift, "allowed signature clock drift")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
