package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/GovIndexor/internal/db"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
)

//go:embed 001_sync_state.sql
var mig001 string

// Migrations returns the downloader database migrations in apply order.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_sync_state.sql",
			SQL: mig001,
		},
	}
}

// RunMigrations runs all migrations for the downloader database.
func RunMigrations(cfg config.DatabaseConfig) error {
	return db.RunMigrations(cfg, Migrations())
}
