// Package migrations embeds the SQL schema migrations so the migrate
// command needs no filesystem layout at runtime.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
