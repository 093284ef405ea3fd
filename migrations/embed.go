// Package migrations embeds the learning store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
