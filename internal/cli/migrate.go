package cli

import (
	"github.com/spf13/cobra"

	"github.com/folio/folio/internal/database"
	"github.com/folio/folio/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := database.Migrate(cmd.Context(), a.db); err != nil {
			return err
		}

		log := logger.WithComponent("migrate")
		log.Info().Str("driver", cfg.DatabaseDriver).Msg("schema is up to date")
		return nil
	},
}
