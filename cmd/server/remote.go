package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/config"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/todo/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/todo/internal/infrastructure/redis"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/httpsource"
	"github.com/fastygo/todo/repository/memory"
	"github.com/fastygo/todo/repository/postgres"
	redisRepo "github.com/fastygo/todo/repository/redis"
)

// openRemote builds the remote data source selected by REMOTE_BACKEND and the
// health check the monitor runs against it.
func openRemote(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (repository.TaskDataSource, monitor.Check, error) {
	switch cfg.Remote.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory remote store; data is lost on restart")
		return memory.New(), func(context.Context) error { return nil }, nil

	case config.BackendPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		manager.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, logger)
			return nil
		})
		return postgres.NewTaskSource(pool), pool.Ping, nil

	case config.BackendRedis:
		client, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		manager.Register("redis", func(context.Context) error {
			return client.Close()
		})
		return redisRepo.NewTaskSource(client, cfg.Redis.Prefix), redisInfra.Ping(client), nil

	case config.BackendHTTP:
		source := httpsource.New(cfg.Remote.HTTPURL,
			httpsource.WithToken(cfg.Remote.HTTPToken),
			httpsource.WithTimeout(cfg.Remote.HTTPTimeout),
		)
		logger.Info("using remote task api", zap.String("url", cfg.Remote.HTTPURL))
		return source, source.Ping, nil

	default:
		return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}
