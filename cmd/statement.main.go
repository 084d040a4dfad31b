package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statement-line-service/internal/config"
	"statement-line-service/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on system env vars")
	}

	cfg := config.Load()

	srv, err := server.NewStatementLineServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise statement line service", zap.Error(err))
	}
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start statement line service", zap.Error(err))
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("statement line service shutting down gracefully")
	case err := <-srv.Errors():
		logger.Error("statement line service failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
	}
}
