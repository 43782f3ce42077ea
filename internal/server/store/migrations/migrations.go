// Package migrations embeds the SQL schema migrations for the relational
// backends. Both the sqlite and postgres engines apply them through goose
// on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
