// Package cli wires configuration, stores and services into the folio commands
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/folio/folio/internal/config"
	"github.com/folio/folio/internal/logger"
)

var version = "1.0.0"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio issues commercial and inventory documents",
	Long: `Folio turns finalized drafts into issued documents: it allocates
legal numbering, moves the stock ledger, persists the document and obtains
external validation from the tax authority in one transaction.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, seedCmd)
}

// loadConfig seeds the environment from the env file and sets up logging
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}
