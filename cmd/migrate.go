package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plant_identifier/internal/models"
	"plant_identifier/internal/storage/postgres"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect postgres schema migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			if cfg.DatabaseDriver != models.DriverPostgres {
				logger.Info("migrations only apply to postgres; schema is created on open", "driver", cfg.DatabaseDriver)
				return nil
			}

			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if err := postgres.Migrate(cfg.DatabaseURL, command, logger); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			return nil
		},
	}
}
