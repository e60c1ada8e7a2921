// Command migrate applies the embedded schema migrations to database.dsn.
//
// Usage:
//
//	migrate
//
// Reads the same configuration as the server. Exit codes: 0 = success,
// 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/lingua-backend/internal/adapter/postgres"
	"github.com/heartmarshall/lingua-backend/internal/app"
	"github.com/heartmarshall/lingua-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.IsMemory() {
		log.Fatal("migrate requires the postgres driver")
	}

	logger, closeLog := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	err = postgres.Migrate(ctx, logger, cfg.Database.DSN)
	cancel()
	if err != nil {
		logger.Error("migrate", slog.String("error", err.Error()))
		closeLog() //nolint:errcheck
		os.Exit(1)
	}
	closeLog() //nolint:errcheck
}
