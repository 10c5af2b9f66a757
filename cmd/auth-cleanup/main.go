// Command auth-cleanup deletes expired refresh token records. The API removes
// them lazily on the next refresh attempt; this is meant to run from cron.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var repo repository.RefreshTokenRepository
	switch cfg.Auth.RefreshStore {
	case config.RefreshStorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		repo = repository.NewRefreshTokenRepository(pg.PoolHandle())
	case config.RefreshStoreRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		repo = repository.NewRedisRefreshTokenRepository(redis.Client)
	default:
		logger.Info("in-memory refresh store has nothing to clean up")
		return
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		logger.Fatal("cleanup refresh_tokens failed", zap.Error(err))
	}
	logger.Info("auth cleanup completed", zap.Int64("refresh_tokens", deleted))
}
