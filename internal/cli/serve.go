package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio/folio/internal/api"
	"github.com/folio/folio/internal/api/handlers"
	"github.com/folio/folio/internal/logger"
	"github.com/folio/folio/internal/repository"
	"github.com/folio/folio/internal/service"
	"github.com/folio/folio/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.WithComponent("server")

		a, err := newApp(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		taskClient := tasks.NewClient(tasks.RedisOpt(a.redis))
		defer taskClient.Close()

		organizations := repository.NewOrganizationRepository(a.db)
		catalog := repository.NewCatalogRepository(a.db)
		documents := repository.NewDocumentRepository(a.db)
		stock := repository.NewStockRepository(a.db)
		drafts := repository.NewRedisDraftStore(a.redis, cfg.DraftTTL)

		authService := service.NewAuthService(organizations, cfg.JWTSecret)
		rateLimitService := service.NewRateLimitService(a.redis, cfg.DailyLimit, cfg.MonthlyLimit)
		issuanceService := service.NewIssuanceService(a.db, catalog, documents, a.authority, taskClient, service.IssuanceConfig{
			Isolation:    cfg.IsolationLevel(),
			TxTimeout:    cfg.TxTimeout,
			POSThreshold: cfg.POSThreshold(),
		})
		draftService := service.NewDraftService(drafts, stock, catalog, documents, cfg.POSThreshold())

		router := api.NewRouter(api.Dependencies{
			Auth:         authService,
			Limiter:      rateLimitService,
			Issuer:       issuanceService,
			Documents:    documents,
			Drafts:       draftService,
			POSThreshold: cfg.POSThreshold(),
			Checks: map[string]handlers.Check{
				"database": a.db.PingContext,
				"redis":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
			},
		})

		server := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.TxTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Port).Bool("authority", cfg.AuthorityEnabled()).Msg("starting folio server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for interrupt signal for graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		log.Info().Msg("shutting down server")

		// in-flight issuances get their full transaction budget
		ctx, cancel := context.WithTimeout(context.Background(), cfg.TxTimeout+5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}

		log.Info().Msg("server exited gracefully")
		return nil
	},
}
