package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/GovIndexor/internal/db"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
)

//go:embed 001_ledger_entities.sql
var mig001 string

//go:embed 002_reward_pools.sql
var mig002 string

// Migrations returns the ledger store migrations in apply order.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_ledger_entities.sql",
			SQL: mig001,
		},
		{
			ID:  "002_reward_pools.sql",
			SQL: mig002,
		},
	}
}

// RunMigrations runs all migrations for a ledger store database.
func RunMigrations(cfg config.DatabaseConfig) error {
	return db.RunMigrations(cfg, Migrations())
}
