// Package migrations embeds the goose SQL migrations for the application
// database (users, refresh-token ledger, watermarks, request audit log).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
