package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/lingua-backend/internal/adapter/memory"
	"github.com/heartmarshall/lingua-backend/internal/adapter/postgres"
	"github.com/heartmarshall/lingua-backend/internal/config"
	"github.com/heartmarshall/lingua-backend/internal/domain"
)

type gateway interface {
	Session(ctx context.Context) (*domain.Session, error)
	CurrentUser(ctx context.Context) (*domain.AuthUser, error)
	Query(ctx context.Context, table domain.Table, filter domain.Filter) ([]domain.Row, error)
	Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error)
	Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error)
	Delete(ctx context.Context, table domain.Table, id string) error
	Subscribe(ctx context.Context, tables []domain.Table, onChange func(domain.Table)) (domain.Subscription, error)
	Ping(ctx context.Context) error
}

// backend is the selected data gateway plus its lifecycle hooks.
type backend struct {
	gateway gateway
	// run blocks until ctx is done. Nil when the backend has no background work.
	run   func(ctx context.Context) error
	close func()
}

func openBackend(ctx context.Context, cfg config.DatabaseConfig, progress config.ProgressConfig, log *slog.Logger) (*backend, error) {
	if cfg.IsMemory() {
		gw := memory.New(log)
		gw.SeedAreas()
		log.Warn("using in-memory backend, data is lost on restart")
		return &backend{gateway: gw, close: func() {}}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, log, cfg.DSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, log, cfg)
	if err != nil {
		return nil, err
	}

	feed := postgres.NewChangeFeed(log, pool, progress.ChangeChannel)
	return &backend{
		gateway: pgGateway{Gateway: postgres.NewGateway(log, pool, feed), ping: pool.Ping},
		run:     feed.Run,
		close:   pool.Close,
	}, nil
}

// pgGateway adds the pool health check to the postgres gateway.
type pgGateway struct {
	*postgres.Gateway
	ping func(ctx context.Context) error
}

func (g pgGateway) Ping(ctx context.Context) error { return g.ping(ctx) }
