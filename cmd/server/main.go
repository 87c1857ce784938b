package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/internal/config"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	"github.com/fastygo/todo/internal/middleware"
	"github.com/fastygo/todo/internal/router"
	"github.com/fastygo/todo/internal/services"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/repository/bolt"
	"github.com/fastygo/todo/repository/cached"
	taskUC "github.com/fastygo/todo/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	local, err := bolt.Open(cfg.Local.Path)
	if err != nil {
		zapLogger.Fatal("failed to open local task store", zap.Error(err))
	}
	manager.Register("local_store", func(context.Context) error {
		return local.Close()
	})

	remote, remoteCheck, err := openRemote(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("remote task store unavailable", zap.Error(err))
	}

	checks := map[string]monitor.Check{
		"remote": remoteCheck,
		"local":  local.Ping,
	}

	var bufferStore *buffer.Store
	if cfg.Buffer.Enabled {
		bufferStore, err = buffer.Open(cfg.Buffer.Path, "")
		if err != nil {
			zapLogger.Fatal("failed to open buffer store", zap.Error(err))
		}
		manager.Register("buffer", func(context.Context) error {
			return bufferStore.Close()
		})
		if cfg.Buffer.RetentionHours > 0 {
			cutoff := time.Now().Add(-time.Duration(cfg.Buffer.RetentionHours) * time.Hour)
			if removed, err := bufferStore.Cleanup(cutoff); err != nil {
				zapLogger.Warn("buffer cleanup failed", zap.Error(err))
			} else if removed > 0 {
				zapLogger.Warn("expired buffered writes dropped", zap.Int("count", removed))
			}
		}
	}

	mon := monitor.New(checks, bufferStore, cfg.Monitor.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(context.Context) error {
		mon.Stop()
		return nil
	})

	if bufferStore != nil {
		processor := services.NewBufferProcessor(
			bufferStore,
			mon,
			remote,
			zapLogger,
			services.ProcessorConfig{
				Interval:   cfg.Buffer.SyncInterval,
				BatchSize:  cfg.Buffer.BatchSize,
				MaxRetries: cfg.Buffer.MaxRetry,
			},
		)
		processor.Start()
		manager.Register("buffer_processor", processor.Stop)
		remote = services.NewBufferedSource(remote, processor)
	}

	repo := cached.New(remote, local, zapLogger)
	taskUseCase := taskUC.New(repo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.Passthrough
	if cfg.JWT.Secret != "" {
		authMiddleware = middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	} else {
		zapLogger.Warn("JWT_SECRET not set; task API is unauthenticated")
	}
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("remote", cfg.Remote.Backend),
			zap.Bool("buffer", cfg.Buffer.Enabled))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
