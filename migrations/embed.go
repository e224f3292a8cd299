// Package migrations holds the PostgreSQL schema for the postgres task store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
