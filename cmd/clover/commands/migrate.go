package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.DatabaseEnabled {
				return fmt.Errorf("database is not enabled, set DB_ENABLED=true")
			}

			latest, err := database.LatestVersion(cfg.DatabaseMigrationFolderPath)
			if err != nil {
				return err
			}
			logger.WithField("latest_version", latest).Info("Applying migrations")

			db, err := database.Connect(cmd.Context(), database.Options{
				Driver: cfg.DatabaseDriver,
				URL:    cfg.DatabaseURL(),
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return runMigrations(db)
		},
	}
}
