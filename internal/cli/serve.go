package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/sitebuy-backend/internal/api"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/logging"
)

// RunServe runs the API server and, unless disabled, the background
// invoice sweep.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	port := cfg.Server.Port
	if flags.Port > 0 {
		port = flags.Port
	}
	apiCfg := api.Config{
		Port:              port,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
		IncludePending:    cfg.Forecast.IncludePending,
	}

	server := api.NewServer(apiCfg, api.Services{
		Invoicing:  app.Invoicing,
		Purchasing: app.Purchasing,
		Forecast:   app.Forecast,
	}, logger)

	if cfg.Sweep.Enabled && !flags.NoSweep {
		app.Invoicing.StartSweeper(cfg.Sweep.Interval)
		defer app.Invoicing.StopSweeper()
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
