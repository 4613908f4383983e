package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the users table migrations, one directory per
// SQL dialect (sqlite, postgres)
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
