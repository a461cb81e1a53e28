// Package migrations embeds SQL migration files into the binary.
//
// The hearth binary runs migrations from the embedded copy, so the SQL
// files do not need to be shipped alongside it.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
