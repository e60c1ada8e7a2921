package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/lingua-backend/internal/auth"
	"github.com/heartmarshall/lingua-backend/internal/config"
	"github.com/heartmarshall/lingua-backend/internal/service/progress"
)

// Run is the application entry point. It loads configuration, opens the
// selected backend, and serves HTTP until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog := NewLogger(cfg.Log)
	defer closeLog() //nolint:errcheck

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("driver", cfg.Database.Driver),
	)

	be, err := openBackend(ctx, cfg.Database, cfg.Progress, logger)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer be.close()

	sessions := progress.NewRegistry(logger.With("service", "progress"), be.gateway, progressOptions(cfg.Progress), cfg.Progress.SessionIdleTTL)
	defer sessions.Close()

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	handler, stopLimiter := newHandler(cfg, logger, be.gateway, sessions, tokens)
	defer stopLimiter()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	if be.run != nil {
		g.Go(func() error { return be.run(gctx) })
	}

	g.Go(func() error {
		sweepSessions(gctx, sessions, cfg.Progress.SweepInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("application stopped")
	return nil
}

// sweepSessions closes idle progress sessions every interval until ctx is
// done. A non-positive interval disables sweeping.
func sweepSessions(ctx context.Context, sessions *progress.Registry, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions.Sweep(now)
		}
	}
}
