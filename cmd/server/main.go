package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/clients/yahoo"
	"github.com/aristath/optifolio/internal/config"
	"github.com/aristath/optifolio/internal/cvx"
	"github.com/aristath/optifolio/internal/database"
	"github.com/aristath/optifolio/internal/modules/backtest"
	"github.com/aristath/optifolio/internal/modules/market"
	"github.com/aristath/optifolio/internal/modules/optimization"
	"github.com/aristath/optifolio/internal/scheduler"
	"github.com/aristath/optifolio/internal/server"
	"github.com/aristath/optifolio/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting optifolio")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Market data from the local store
	repo := market.NewRepository(db.Conn(), log)

	// Solving backend: remote service if configured, built-in otherwise
	var backend cvx.Backend
	if cfg.SolverServiceURL != "" {
		backend = cvx.NewHTTPBackend(cfg.SolverServiceURL, log)
	} else {
		backend = cvx.NewReferenceBackend(log)
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, repo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// HTTP handlers
	optimizationHandler := optimization.NewHandler(repo, backend, cfg.WeightsTolerance, log)
	backtestHandler := backtest.NewHandler(optimizationHandler, log)
	marketHandler := market.NewHandler(repo, log)

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:         cfg.Port,
		Log:          log,
		DB:           db,
		Config:       cfg,
		DevMode:      cfg.DevMode,
		Market:       marketHandler,
		Optimization: optimizationHandler,
		Backtest:     backtestHandler,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(sched *scheduler.Scheduler, repo *market.Repository, log zerolog.Logger) error {
	// Refresh closes for every symbol any built-in universe can request
	symbols := market.AllUniverseTickers()
	source := yahoo.NewClient(log)
	job := scheduler.NewPriceRefreshJob(source, repo, symbols, log)

	// After US close, every day
	if err := sched.AddJob("0 0 1 * * *", job); err != nil {
		return err
	}

	// Warm a fresh store without blocking startup
	go func() {
		if err := sched.RunNow(job); err != nil {
			log.Error().Err(err).Msg("Initial price refresh failed")
		}
	}()

	return nil
}
