package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	healthDeps := map[string]handlers.Pinger{}
	pool := pg.PoolHandle()

	var (
		userRepo   repository.UserRepository
		transactor persistence.Transactor
	)
	if pool != nil {
		userRepo = repository.NewUserRepository(pool)
		transactor = persistence.NewPgTransactor(pool, logger)
		healthDeps["postgres"] = pg
	} else {
		logger.Warn("running with in-memory user store; data is lost on restart")
		userRepo = repository.NewMemoryUserRepository()
		transactor = persistence.NoopTransactor{}
	}

	var refreshRepo repository.RefreshTokenRepository
	switch cfg.Auth.RefreshStore {
	case config.RefreshStoreRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		refreshRepo = repository.NewRedisRefreshTokenRepository(redis.Client)
		healthDeps["redis"] = redis
	case config.RefreshStorePostgres:
		refreshRepo = repository.NewRefreshTokenRepository(pool)
	default:
		refreshRepo = repository.NewMemoryRefreshTokenRepository()
	}
	logger.Info("refresh token store selected", zap.String("store", cfg.Auth.RefreshStore))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var sink events.Sink
	if cfg.Kafka.Enabled() {
		kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuthTopic, logger)
		defer kafkaSink.Close() //nolint:errcheck
		sink = kafkaSink
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, sink, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		RefreshTokenRepo: refreshRepo,
		Transactor:       transactor,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:       logger,
		Metrics:      metrics,
		Timeout:      cfg.App.RequestTimeout(),
		AccessFilter: auth.NewAccessFilter(authService.TokenManager()),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Auth:    handlers.NewAuthHandler(authService),
		Users:   handlers.NewUsersHandler(authService),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
