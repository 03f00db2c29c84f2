// Package migrations holds the SQL schema migrations applied by golang-migrate.
package migrations

import "embed"

// FS contains every *.sql migration, named NNN_description.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS
