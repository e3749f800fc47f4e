package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/api"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/cache"
	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/persistence"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/config"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start the dashboard server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DB_URL                       Database URL
  FALLBACK_CSV                 Snapshot read when the database is unreachable,
                               including at startup
  DASHBOARD_CACHE_TTL          Seconds a loaded dataset is reused (default: 300)
  REDIS_URL                    Share the dataset cache through Redis
  REFRESH_INTERVAL             Re-run the pipeline every N seconds (default: 0, off)
  REFRESH_BANKS                Comma-separated banks to refresh (default: all)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json, console (default: pretty)

Routes:
  /                            HTML dashboard (?bank= repeats to filter)
  /api/v1/reviews              Reviews as JSON:API (bank, sentiment, theme, rating,
                               min_rating, page, page_size)
  /api/v1/summary              Dashboard figures as JSON
  /mcp                         Model Context Protocol (streamable HTTP)
  /health, /healthz            Liveness and dependency checks
  /metrics                     Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile, host, port)
		},
	}

	envFileFlag(cmd, &envFile)
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(ctx context.Context, envFile, host string, port int) error {
	a, err := newApp(envFile, serveOverrides(host, port)...)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	stack, err := a.buildServeStack(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.closeCache(); err != nil {
			logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if refresh := a.periodicRefresh(stack.store, stack.dashboard); refresh != nil {
		refresh.Start(ctx)
		defer refresh.Stop()
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := stack.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := stack.server.ListenAndServe(a.cfg.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// serveStack is what serve runs once the listener is up.
type serveStack struct {
	store      persistence.ReviewStore
	dashboard  *service.Dashboard
	server     *api.APIServer
	closeCache func() error
}

// buildServeStack wires the store, caches and routes. Only a bad DB_URL or an
// unreachable REDIS_URL fail it; a database that is down is served from
// the fallback snapshot.
func (a *app) buildServeStack(ctx context.Context) (serveStack, error) {
	store, db, err := a.readStore(ctx)
	if err != nil {
		return serveStack{}, err
	}
	pingers := map[string]api.Pinger{"database": db}

	datasetCache, closeCache, err := a.datasetCache(ctx)
	if err != nil {
		return serveStack{}, err
	}
	if r, ok := datasetCache.(*cache.Redis); ok {
		pingers["redis"] = r
	}

	dashboard, reviews := a.readers(store, datasetCache)
	return serveStack{
		store:      store,
		dashboard:  dashboard,
		server:     api.NewAPIServer(dashboard, reviews, version, metrics.InitRegistry(), pingers, a.logger),
		closeCache: closeCache,
	}, nil
}

// periodicRefresh builds the background pipeline run, or returns nil when
// REFRESH_INTERVAL is unset or a stage cannot be built.
func (a *app) periodicRefresh(store persistence.ReviewStore, dashboard *service.Dashboard) *service.PeriodicRefresh {
	dc := a.cfg.Dashboard()
	if dc.RefreshInterval() <= 0 {
		return nil
	}
	scrape, err := a.scrapeService()
	if err != nil {
		a.logger.Warn("periodic refresh disabled", slog.String("error", err.Error()))
		return nil
	}
	analyze, err := a.analyzeService()
	if err != nil {
		a.logger.Warn("periodic refresh disabled", slog.String("error", err.Error()))
		return nil
	}
	pipeline := service.NewPipeline(scrape, a.cleanService(), analyze, service.NewIngest(store, a.logger), a.logger)
	return service.NewPeriodicRefresh(pipeline, dashboard, dc.RefreshBanks(), dc.RefreshInterval(), a.logger)
}

// serveOverrides turns command line flags into config options.
func serveOverrides(host string, port int) []config.AppConfigOption {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return opts
}
