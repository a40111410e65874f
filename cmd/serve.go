package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/jci/internal/adapters/http/api"
	"github.com/okian/jci/internal/adapters/http/swagger"
	"github.com/okian/jci/internal/config"
	"github.com/okian/jci/pkg/logger"
	"github.com/okian/jci/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func newServeCommand(c *cli) *cobra.Command {
	var (
		flags    runFlags
		addr     string
		runFirst bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest stored run over HTTP",
		Long: `Serve exposes the latest stored run:

  GET /healthz                 liveness and readiness
  GET /metrics                 Prometheus metrics
  GET /stats                   summary of the latest run
  GET /regions                 region catalog
  GET /jobs, GET /tasks        row listings (region_type, region, job_id/task_id, limit, offset)
  GET /leaderboard?limit=N     most complex jobs of a region (region_type, region)
  GET /rank/{job_id}           rank of one job within a region
  GET /openapi.yaml, /api-docs API description

With --run the pipeline is executed once before serving.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(cmd.Flags(), c.cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = addr
			}
			return serve(cmd.Context(), c.cfg, runFirst)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().BoolVar(&runFirst, "run", false, "execute the pipeline before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, runFirst bool) error {
	log := logger.Get()
	if cfg.DatabasePath == "" {
		return fmt.Errorf("%w: serve needs database_path", config.ErrInvalidConfig)
	}
	if runFirst {
		if _, err := runPipeline(ctx, cfg, log); err != nil {
			return err
		}
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	svc := newService(cfg, store, log)
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.Bool("ready", svc.Ready(ctx)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	metrics.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateSystemMetrics()
		}
	}
}
