package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_server/config"
	"outreach_server/infra/database"
	"outreach_server/internal/bootstrap"
	"outreach_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "linkedin-outreach",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "api", "Run mode: api, migrate, migrate-down")
	steps := flag.Int("steps", 1, "Migrations to roll back in migrate-down mode")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "linkedin-outreach",
		Pretty:  cfg.IsDevelopment(),
	})

	switch *mode {
	case "api":
		runAPI(cfg)
	case "migrate":
		requireDatabaseURL(cfg)
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("Migration failed: %v", err)
		}
	case "migrate-down":
		requireDatabaseURL(cfg)
		if err := database.MigrateDown(cfg.DatabaseURL, *steps); err != nil {
			logger.Fatal("Rollback failed: %v", err)
		}
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func requireDatabaseURL(cfg *config.Config) {
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required for migrations")
	}
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("Server stopped: %v", err)
	}
}
