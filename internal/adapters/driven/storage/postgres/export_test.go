package postgres

import (
	"embed"

	"github.com/custodia-labs/listings-cli/internal/adapters/driven/storage/postgres/migrations"
)

func migrationsFS() embed.FS { return migrations.FS }
