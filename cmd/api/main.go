package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/northwind-service/internal/api/http"
	"github.com/spec-kit/northwind-service/internal/api/http/handlers"
	"github.com/spec-kit/northwind-service/internal/auth"
	"github.com/spec-kit/northwind-service/internal/config"
	"github.com/spec-kit/northwind-service/internal/events"
	"github.com/spec-kit/northwind-service/internal/observability"
	"github.com/spec-kit/northwind-service/internal/persistence"
	"github.com/spec-kit/northwind-service/internal/ratelimit"
	"github.com/spec-kit/northwind-service/internal/repository"
	"github.com/spec-kit/northwind-service/internal/service"
	"github.com/spec-kit/northwind-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenService()
	if err != nil {
		logger.Fatal("failed to init token service", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	pool := pg.PoolHandle()
	authService := service.NewAuthService(service.AuthDependencies{
		Credentials:  repository.NewCredentialRepository(pool),
		Tokens:       tokens,
		Dispatcher:   dispatcher,
		TokenTTL:     cfg.Auth.TokenTTL(),
		PasswordCost: cfg.Auth.BcryptCost,
	})
	catalogService := service.NewCatalogService(repository.NewCatalogRepository(pool))

	limiter := ratelimit.NewLimiter(
		ratelimit.WithWindow(cfg.RateLimit.Window()),
		ratelimit.WithMaxRequests(cfg.RateLimit.MaxRequests),
		ratelimit.WithIdleWindows(cfg.RateLimit.IdleWindows),
	)
	limiter.StartJanitor(ctx, cfg.RateLimit.SweepInterval(), metrics.ObserveEvictions)

	limiterOpts := ratelimit.MiddlewareOptions{
		Methods:  cfg.RateLimit.Methods,
		Observer: metrics,
	}
	var (
		statsReader handlers.StatsReader
		statsWorker *worker.StatsWorker
		dropped     func() int64
	)
	if cfg.RateLimit.StatsEnabled {
		stats := ratelimit.NewRedisStats(redis.Client, "", 0)
		statsWorker = worker.NewStatsWorker(stats, cfg.RateLimit.StatsBuffer, logger)
		limiterOpts.Sink = statsWorker
		statsReader = stats
		dropped = statsWorker.Dropped
	}

	if cfg.App.ProxyHeader != "" && len(cfg.App.TrustedProxies) == 0 {
		logger.Warn("APP_PROXY_HEADER set without APP_TRUSTED_PROXIES; clients are keyed by peer address")
	}
	app := httptransport.NewApp(cfg.App)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.CORS, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Auth:        handlers.NewAuthHandler(authService),
		Catalog:     handlers.NewCatalogHandler(catalogService),
		Ops:         handlers.NewOpsHandler(metrics.Registry, limiter, statsReader, dropped),
		RateLimiter: ratelimit.NewMiddleware(limiter, limiterOpts),
		Gate:        auth.NewGate(tokens, logger),
		Policy:      auth.NewPolicy(auth.DefaultRules(), metrics),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if statsWorker != nil {
		g.Go(func() error {
			statsWorker.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
