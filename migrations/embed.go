// Package migrations embeds the universal schema migration files so the
// engine and its test helpers apply them without a runtime path dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
