// Package db embeds the schema migrations applied by `wellctl migrate`.
package db

import "embed"

// Migrations holds the goose SQL files, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Dir is the directory inside Migrations that goose reads from.
const Dir = "migrations"
