package admin

import (
	"fmt"

	"github.com/cloo-solutions/askdesk/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			status, err := database.MigrateUp(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			printMigrationStatus(status)
			return nil
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}

			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			status, err := database.MigrateDown(cfg.DatabaseURL, steps, logger)
			if err != nil {
				return err
			}
			printMigrationStatus(status)
			return nil
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func printMigrationStatus(status *database.MigrationStatus) {
	switch {
	case status == nil || status.Version == 0:
		fmt.Println("Database has no migrations applied")
	case status.Changed:
		fmt.Printf("Migrated to version %d\n", status.Version)
	default:
		fmt.Printf("Database is up to date (version %d)\n", status.Version)
	}
}
