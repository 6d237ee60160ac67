package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpaceTransformer/xgoals-framework/internal/app"
	"github.com/SpaceTransformer/xgoals-framework/internal/config"
	"github.com/SpaceTransformer/xgoals-framework/internal/logger"
	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"
	"github.com/SpaceTransformer/xgoals-framework/internal/scheduler"
	"github.com/SpaceTransformer/xgoals-framework/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	logger.Setup(cfg.AppEnv, cfg.LogLevel)

	log.Info().Msg("Starting xGoals worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Int("daily_limit", cfg.DailyCallLimit).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	a, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer a.Close()

	// Start status server
	opts := server.Options{Port: cfg.MetricsPort, Quota: a.Football.Quota(), Artifacts: a.Artifacts}
	if a.DB != nil {
		opts.DB = a.DB
		opts.Matches = a.DB.Matches
		opts.Predictions = a.DB.Predictions
		opts.Evaluations = a.DB.Evaluations
	}
	srv := server.NewServer(opts)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("Status server stopped")
		}
	}()

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	newRunner := func() (scheduler.Runner, error) {
		opt, err := a.NewOptimizer()
		if err != nil {
			return nil, err
		}
		return opt, nil
	}
	sched := scheduler.NewScheduler(scheduler.Config{
		CollectCron:  cfg.CollectCron,
		OptimizeCron: cfg.OptimizeCron,
		Location:     a.Location(),
	}, a.Collector, a.Store, newRunner, a.Clock)

	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	} else {
		log.Info().Msg("Scheduler disabled, serving status only")
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	if cfg.EnableScheduler {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Status server shutdown failed")
	}

	log.Info().Msg("Worker shutdown complete")
}
