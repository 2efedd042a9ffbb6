package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"climadex/internal/config"
	"climadex/internal/handlers"
	"climadex/internal/indicators"
	"climadex/internal/repository"
	"climadex/internal/risk"
	"climadex/internal/services"
	"climadex/pkg/database"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climadex-api", version, cfg.LogLevel())

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting climadex API server", logging.Fields{
		"version":         version,
		"server_host":     cfg.Server.Host,
		"server_port":     cfg.Server.Port,
		"db_driver":       cfg.Database.Driver,
		"indicators_path": cfg.Indicators.Path,
	})

	metricsCollector := metrics.NewCollector("climadex")

	db, err := database.Open(cfg.DatabaseConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	factoryRepo := repository.NewFactoryRepository(db, logger, metricsCollector)
	if err := factoryRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to migrate database", logging.Fields{}, err)
	}

	grid, err := indicators.LoadGrid(cfg.Indicators.Path, cfg.Indicators.Resolution)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load indicator dataset", logging.Fields{
			"path": cfg.Indicators.Path,
		}, err)
	}
	logger.Info(ctx, "[STARTUP] Indicator dataset loaded", logging.Fields{
		"path":       cfg.Indicators.Path,
		"cells":      grid.Len(),
		"resolution": cfg.Indicators.Resolution,
	})

	evaluator := risk.NewEvaluator(grid, metricsCollector)

	factoryService := services.NewFactoryService(factoryRepo, evaluator, logger, metricsCollector)
	factoryService.SetPageSizes(cfg.API.DefaultPageSize, cfg.API.MaxPageSize)

	factoryHandler := handlers.NewFactoryHandler(factoryService, factoryRepo, logger, metricsCollector)

	opts := handlers.RouterOptions{
		CORSOrigins: cfg.API.CORSOrigins,
		Compression: handlers.DefaultCompressionConfig(),
	}
	if cfg.API.RateLimit > 0 {
		opts.RateLimiter = handlers.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateLimitBurst)
		defer opts.RateLimiter.Stop()
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handlers.NewRouter(factoryHandler, logger, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
