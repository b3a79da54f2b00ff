package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sendflowr/pulse/adapter/cli"
	"github.com/sendflowr/pulse/internal/app"
	"github.com/sendflowr/pulse/pkg/config"
	"github.com/sendflowr/pulse/pkg/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{AppEnv: "development"}
	}

	// Setup logger
	logCfg := observability.DefaultLogConfig()
	logCfg.ServiceVersion = cli.Version
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
		logCfg.ServiceVersion = cli.Version
	}
	if cfg.LogLevel != "" {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logger := observability.NewLogger(logCfg)
	cli.SetLogging(logCfg)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Initialize the container
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// In development, allow the CLI to run without storage
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		cli.SetApp(&cli.App{
			Config:          cfg,
			DecisionService: container.DecisionService,
			FeatureService:  container.FeatureService,
			Resolver:        container.Resolver,
			Server:          container.APIServer,
			EventWriter:     container.EventWriter,
		})
	}

	cli.Execute()
}
