package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nrfta/catalog-go/internal/config"
	"github.com/nrfta/catalog-go/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != config.DriverPostgres {
			return fmt.Errorf("migrate: STORE_DRIVER is %s, not postgres", cfg.StoreDriver)
		}
		ctx := cmd.Context()
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema migrated")
		return nil
	},
}

