// Package cli implements the digestry command-line client.
//
// Usage:
//
//	digestry-client [flags] <command> [digest ...]
//
// Commands:
//   - check: print report and whitelist counts per digest
//   - report: report digests as spam
//   - whitelist: record digests as known good
//   - info: print the full per-digest detail
//   - ping: check that the server answers
//   - pong: diagnostic check, always answered with maximal counts
//   - genkey: derive a new account key from a passphrase and print the
//     accounts file lines for it
//
// Network commands resolve the account for the configured server from the
// client accounts file and sign requests when one is present. genkey is
// purely local: it prompts for a passphrase twice without echo and prints
// both the client accounts line and the matching server line.
package cli
