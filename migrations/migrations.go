// Package migrations embeds the SQL schema files applied by the
// database initializer. Files run in lexical order and each applied
// version is recorded in schema_migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
