package cli

import (
	"github.com/spf13/cobra"

	"github.com/folio/folio/internal/logger"
	"github.com/folio/folio/internal/repository"
	"github.com/folio/folio/internal/tasks"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background task worker",
	Long:  "Runs the notification and confirmation polling tasks enqueued after issuance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.WithComponent("worker")

		a, err := newApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if !cfg.AuthorityEnabled() {
			log.Warn().Msg("no authority configured, tasks will fail until AUTHORITY_BASE_URL is set")
		}

		processor := tasks.NewProcessor(repository.NewDocumentRepository(a.db), a.authority)
		server := tasks.NewServer(tasks.RedisOpt(a.redis), cfg.WorkerConcurrency)

		log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("starting task worker")
		// Run blocks until SIGTERM or SIGINT
		return server.Run(processor.Mux())
	},
}
