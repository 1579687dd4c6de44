// Package migrations embeds the goose migration set for the store's
// PostgreSQL backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
