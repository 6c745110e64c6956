package cli

import (
	"fmt"

	"resumescan/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage database migrations",
	Long: `Manage schema migrations for the configured Postgres database.
Migrations are embedded in the binary and applied in order.

  up      Apply all pending migrations (default)
  down    Roll back the most recent migration
  status  Show applied and pending migrations`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return err
	}

	db, err := store.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()

	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "down":
		err = db.MigrateDown(ctx)
	case "status":
		err = db.MigrationStatus(ctx)
	default:
		err = db.Migrate(ctx)
	}
	if err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}
	return nil
}
