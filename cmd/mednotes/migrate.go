package main

import (
	"mednotes/internal/config"
	"mednotes/internal/db"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.StoreDriver != config.DriverPostgres {
				return errors.Errorf("migrate needs STORE_DRIVER=%s, got %q", config.DriverPostgres, cfg.StoreDriver)
			}

			gdb, err := db.Connect(cfg.DatabaseURL, cfg.Env != "production")
			if err != nil {
				return errors.Wrap(err, "connect postgres")
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := db.AutoMigrateAndIndexes(gdb); err != nil {
				return errors.Wrap(err, "migrate")
			}
			zap.L().Info("schema up to date")

			if seed {
				if err := db.Seed(cmd.Context(), gdb); err != nil {
					return err
				}
				zap.L().Info("fixtures loaded")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the demo fixtures")
	return cmd
}
