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

	"github.com/cloo-solutions/askdesk/internal/api/handlers"
	"github.com/cloo-solutions/askdesk/internal/jobs"
	"github.com/cloo-solutions/askdesk/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the askdesk API server, the ingestion dispatcher and the stale upload sweeper",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides ASKDESK_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-sweeper", false, "Do not resubmit documents stuck in uploaded")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	noSweeper, _ := cmd.Flags().GetBool("no-sweeper")

	a, err := newApp(ctx, cfg, logger, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	var sweeper *jobs.Worker
	if !noSweeper {
		sweeper = jobs.NewWorker(
			jobs.NewUploadedSweeper(a.documentRepo, a.dispatcher, cfg.SweepGracePeriod, logger.Named("sweeper")),
			cfg.SweepInterval,
			logger.Named("sweeper"),
		)
		go sweeper.Start(ctx)
		logger.Info("uploaded sweeper started", zap.Duration("interval", cfg.SweepInterval))
	}

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(a.knowledge),
		DocumentHandler:  handlers.NewDocumentHandler(a.documents),
		QueryHandler:     handlers.NewQueryHandler(a.queries),
		Logger:           logger.Named("http"),
		Observer:         a.metrics,
		Registry:         a.metrics.Registry(),
		MaxBodyBytes:     cfg.MaxUploadBytes + 5<<20,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.shutdown(shutdownTimeout)

	logger.Info("server exited")
	return nil
}
