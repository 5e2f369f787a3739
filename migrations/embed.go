// Package migrations holds the entity ledger schema. Importing it for its
// side effect registers the embedded files with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/database"
)

//go:embed *.sql
var schema embed.FS

func init() {
	database.MigrationsFS, database.MigrationsDir = schema, "."
}
