// Package config loads runtime configuration for the digestry CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags).
//  4. Environment variables (see parseEnv), which override everything.
//
// Supported flags
//
//	-a string     address:port of the server UDP endpoint
//	-k string     accounts file path
//	-t duration   per-request timeout, e.g. "5s"
//	-n string     account username used by genkey
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be
// either strings like "5s" or integer nanoseconds:
//
//	{
//	  "address": "127.0.0.1:24441",
//	  "accounts_file": "/home/me/.digestry/accounts",
//	  "timeout": "5s",
//	  "user": "reporter"
//	}
//
// Environment variables: ADDRESS, ACCOUNTS_FILE, TIMEOUT.
package config
