package app

import (
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lingua-backend/internal/auth"
	"github.com/heartmarshall/lingua-backend/internal/config"
	"github.com/heartmarshall/lingua-backend/internal/service/progress"
	"github.com/heartmarshall/lingua-backend/internal/transport/middleware"
	"github.com/heartmarshall/lingua-backend/internal/transport/rest"
)

// newHandler builds the REST router wrapped in the middleware chain. The
// returned stop func releases the rate limiter.
func newHandler(
	cfg *config.Config,
	log *slog.Logger,
	gw gateway,
	sessions *progress.Registry,
	tokens *auth.JWTManager,
) (http.Handler, func()) {
	router := rest.NewRouter(
		rest.NewHealthHandler(gw, sessions, cfg.Database.Driver, BuildVersion()),
		rest.NewProgressHandler(sessions, log),
		rest.NewCatalogHandler(sessions, log),
	)

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.CORS),
		middleware.Auth(tokens),
	}
	stop := func() {}
	if cfg.RateLimit.RPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TTL)
		mws = append(mws, limiter.Middleware())
		stop = limiter.Stop
	}

	return middleware.Chain(mws...)(router), stop
}

// progressOptions maps the progress config onto aggregator options.
func progressOptions(cfg config.ProgressConfig) progress.Options {
	return progress.Options{
		PassThreshold: cfg.PassThreshold,
		AnswerXP:      cfg.AnswerXP,
		AwardPolicy:   cfg.Policy(),
	}
}
