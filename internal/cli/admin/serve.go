package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/api/handlers"
	"github.com/cloo-solutions/ragdoc/internal/config"
	"github.com/cloo-solutions/ragdoc/internal/jobs"
	"github.com/cloo-solutions/ragdoc/internal/llm"
	"github.com/cloo-solutions/ragdoc/internal/logging"
	"github.com/cloo-solutions/ragdoc/internal/server"
	"github.com/cloo-solutions/ragdoc/internal/service"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ragdoc API server and the background reindex worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides RAGDOC_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not run the reindex worker in this process")
	cmd.Flags().String("migrations-dir", defaultMigrationsDir, "Migrations directory")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer flush()
	}

	// Completion backend selection fails fast, before any store is dialed.
	router, err := llm.NewRouter(llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		Timeout:   cfg.LLMTimeout,
		RateLimit: cfg.LLMRateLimit,
	}, logger)
	if err != nil {
		return err
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	migrationsDir, _ := cmd.Flags().GetString("migrations-dir")
	a, err := newApp(ctx, cfg, logger, appOptions{migrate: !noMigrate, migrationsDir: migrationsDir})
	if err != nil {
		return err
	}
	defer a.Close()

	retrieval := service.NewRetrievalService(a.gateway, router, cfg.TopK, logger)

	var workers []*jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		workers = append(workers,
			jobs.NewWorker("index-audit", jobs.NewIndexAudit(a.reindexSvc, logger), cfg.IndexAuditInterval, logger),
		)
		if a.jobRepo != nil {
			workers = append(workers,
				jobs.NewWorker("reindex", jobs.NewReindexWorker(a.jobRepo, a.reindexSvc, logger), cfg.WorkerPollInterval, logger),
				jobs.NewWorker("stuck-sweeper", jobs.NewStuckSweeper(a.reindexSvc, cfg.StuckAfter, logger), cfg.StuckAfter, logger),
			)
		}
		for _, w := range workers {
			go w.Start(ctx)
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.RouterConfig{
			Logger:          logger,
			APIKey:          cfg.APIKey,
			MaxBodyBytes:    cfg.MaxUploadBytes,
			DocumentHandler: handlers.NewDocumentHandler(a.ingestion, a.meta, a.reindexSvc),
			QueryHandler:    handlers.NewQueryHandler(retrieval),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("llm_backend", router.Backend()),
			zap.String("index_backend", cfg.IndexBackend),
			zap.String("metadata_backend", cfg.MetadataBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
