package config

import (
	"flag"
	"os"

	"github.com/digestry/digestry/internal/flagx"
)

// parseFlags populates Config fields from the command-line flags the CLI
// owns. os.Args is filtered through flagx.FilterArgs first, so subcommand
// names and their digest arguments pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-t", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Address, "a", config.Address, "server address and port")
	fs.StringVar(&config.AccountsPath, "k", config.AccountsPath, "accounts file")
	fs.DurationVar(&config.Timeout, "t", config.Timeout, "request timeout")
	fs.StringVar(&config.User, "n", config.User, "account username for genkey")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
