// Package migrations holds the sqlite schema of the workflow store.
package migrations

import "embed"

// FS holds the embedded *.up.sql and *.down.sql files, applied by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
