// Package migrations embeds the catalog schema applied by
// database.RunMigrations when the postgres backend is selected.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
