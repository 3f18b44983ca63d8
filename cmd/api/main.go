package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neuronote/infrastructure/config"
	"neuronote/infrastructure/di"
	"neuronote/infrastructure/metrics"

	"go.uber.org/zap"
)

const cloudWatchFlushInterval = time.Minute

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	// Background work: index repairs and, for CloudWatch, metric flushing
	container.RepairProcessor.Start(ctx)
	if sink, ok := container.Metrics.(*metrics.CloudWatch); ok {
		go sink.Run(ctx, cloudWatchFlushInterval)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.DatabaseDriver),
			zap.String("vectorBackend", cfg.VectorBackend),
			zap.String("llmProvider", cfg.LLMProvider),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	container.RepairProcessor.Stop()
	cancel()

	if sink, ok := container.Metrics.(*metrics.CloudWatch); ok {
		if err := sink.Flush(shutdownCtx); err != nil {
			container.Logger.Warn("Final metrics flush failed", zap.Error(err))
		}
	}

	// Clean up resources
	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
