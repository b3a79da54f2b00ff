package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sendflowr/pulse/internal/app"
	"github.com/sendflowr/pulse/pkg/config"
	"github.com/sendflowr/pulse/pkg/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	// Setup logger
	logCfg := observability.DefaultLogConfig()
	logCfg.ServiceName = "pulse-worker"
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
		logCfg.ServiceName = "pulse-worker"
	}
	if cfg.LogLevel != "" {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logger := observability.NewLogger(logCfg)

	logger.Info("starting pulse worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize the container
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// Serve the health endpoint
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		results := container.Health.Check(r.Context())
		status := http.StatusOK
		for _, result := range results {
			if result.Status == observability.HealthStatusUnhealthy {
				status = http.StatusServiceUnavailable
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})
	healthServer := &http.Server{
		Addr:              cfg.WorkerHealthAddr,
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("health endpoint listening", "addr", cfg.WorkerHealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health endpoint failed", "error", err)
		}
	}()

	// Recompute features for every active identity on a fixed cadence.
	// The first pass runs immediately so a fresh deployment warms the
	// cache without waiting a full interval.
	logger.Info("starting feature recompute loop", "interval", cfg.FeatureRecomputeEvery)

	recompute := func() {
		timer := observability.StartTimer(container.Metrics, "feature_recompute")
		computed, err := container.FeatureService.ComputeAll(ctx)
		duration := timer.StopErr(err)
		if err != nil {
			logger.Error("feature recompute failed", "error", err)
			return
		}
		logger.Info("feature recompute complete",
			"identities", computed,
			"duration_ms", duration.Milliseconds(),
		)
	}
	recompute()

	ticker := time.NewTicker(cfg.FeatureRecomputeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			recompute()
		case <-ctx.Done():
			logger.Info("shutting down worker")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = healthServer.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		}
	}
}
