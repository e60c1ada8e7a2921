// Command server runs the progress API.
//
// Configuration comes from config.yaml (or CONFIG_PATH), an optional .env
// file (or ENV_FILE), and environment variables. The server stops gracefully
// on SIGINT or SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/lingua-backend/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		slog.Error("server terminated with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
