package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/api"
	"github.com/oddsmith/picks-engine/internal/cache"
	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/engine"
	"github.com/oddsmith/picks-engine/internal/logging"
	"github.com/oddsmith/picks-engine/internal/market"
	"github.com/oddsmith/picks-engine/internal/monitor"
	"github.com/oddsmith/picks-engine/internal/notify"
	"github.com/oddsmith/picks-engine/internal/picks"
	"github.com/oddsmith/picks-engine/internal/scheduler"
)

func main() {
	// Local development convenience; the file is absent in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	provider := market.NewHTTPClient(cfg.Provider, logger)
	sched := scheduler.New(cfg.Scheduler, func(ctx context.Context, req scheduler.Request) ([]byte, error) {
		return provider.Fetch(ctx, req.Endpoint, req.Params)
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	dataCache := cache.New[[]byte](cfg.Cache, logger)
	defer dataCache.Close()

	gateway := market.NewGateway(dataCache, sched, market.NewAdapter(logger), cfg.Gateway, logger)
	eng := engine.New(cfg.Engine, logger)
	categorizer := picks.NewCategorizer(cfg.Picks, logger)
	store := picks.NewStore()
	notifier := notify.NewService(cfg.Notifier, logger)

	orchestrator := picks.NewOrchestrator(gateway, eng, categorizer, store, notifier,
		cfg.Gateway.Sports, cfg.Picks, logger)

	if cfg.Monitor.Enabled {
		resourceMonitor := monitor.New(cfg.Monitor, logger)
		resourceMonitor.Start(ctx)
		defer resourceMonitor.Stop()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, orchestrator)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Warm the snapshot so the first request is not a cold pipeline run.
	go func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer warmCancel()
		if _, err := orchestrator.GetAllPicks(warmCtx, false); err != nil {
			logger.WithError(err).Warn("Initial picks warmup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
