package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tutorhub-backend/internal/app"
	"tutorhub-backend/internal/application/reconcile"
	"tutorhub-backend/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/base.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize container", zap.Error(err))
	}

	scheduler, err := reconcile.NewScheduler(container.CompletionJob, container.RolloverJob, logger)
	if err != nil {
		logger.Fatal("Failed to build scheduler", zap.Error(err))
	}

	logger.Info("Starting worker service",
		zap.String("environment", cfg.Environment),
	)

	if cfg.Jobs.RunOnStart {
		// Catch up on anything missed while the worker was down.
		go func() {
			runCtx, runCancel := context.WithTimeout(ctx, 30*time.Minute)
			defer runCancel()
			if stats, err := container.CompletionJob.Run(runCtx); err != nil {
				logger.Error("startup completion run failed", zap.Error(err))
			} else {
				logger.Info("startup completion run finished",
					zap.Int("examined", stats.Examined),
					zap.Int("completed", stats.Completed),
				)
			}
		}()
	}

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down worker service...")
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	container.Close(shutdownCtx)

	logger.Info("Worker service stopped")
}
