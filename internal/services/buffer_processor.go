package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// BufferProcessor replays queued writes against the remote task store.
type BufferProcessor struct {
	store   *buffer.Store
	monitor ConnectionHealth
	remote  repository.TaskDataSource
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	remote repository.TaskDataSource,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:   store,
		monitor: monitor,
		remote:  remote,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	if _, err := bp.cron.AddFunc("@every "+cfg.Interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	}); err != nil {
		logger.Error("invalid buffer drain schedule", zap.Duration("interval", cfg.Interval), zap.Error(err))
	}

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) error {
	if bp == nil || bp.cron == nil {
		return nil
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	bp.logger.Info("buffer processor stopped")
	return nil
}

// Drain replays queued writes in order. It stops at the first item that fails
// so later writes never overtake it; an item that keeps failing is dropped
// after MaxRetries attempts.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.Peek(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := bp.apply(ctx, item); err != nil {
			item.Retries++
			bp.logger.Warn("failed to replay buffered write",
				zap.String("item_id", item.ID),
				zap.String("operation", item.Operation),
				zap.String("task_id", item.TaskID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Error("dropping buffered write (max retries reached)", zap.String("item_id", item.ID))
				if err := bp.store.Remove(item); err != nil {
					return err
				}
				continue
			}
			return bp.store.Update(item)
		}

		if err := bp.store.Remove(item); err != nil {
			return err
		}
		bp.logger.Debug("buffered write replayed",
			zap.String("operation", item.Operation),
			zap.String("task_id", item.TaskID))
	}
	return nil
}

// BufferOperation applies item to the remote store when it is reachable and
// nothing is queued ahead of it; otherwise it queues item for a later Drain.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}

	pending, err := bp.store.Size()
	if err != nil {
		return fmt.Errorf("buffer size: %w", err)
	}
	if pending == 0 && (bp.monitor == nil || bp.monitor.IsOnline()) {
		err := bp.apply(ctx, item)
		if err == nil {
			return nil
		}
		bp.logger.Warn("remote write failed, buffering",
			zap.String("operation", item.Operation),
			zap.String("task_id", item.TaskID),
			zap.Error(err))
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items, or 0 when the store cannot be read.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		bp.logger.Warn("buffer size unavailable", zap.Error(err))
		return 0
	}
	return size
}

func (bp *BufferProcessor) apply(ctx context.Context, item buffer.Item) error {
	var task *domain.Task
	if len(item.Data) > 0 {
		task = new(domain.Task)
		if err := json.Unmarshal(item.Data, task); err != nil {
			return err
		}
	}

	switch item.Operation {
	case buffer.OpSave:
		if task == nil {
			return domain.ErrInvalidPayload
		}
		return bp.remote.SaveTask(ctx, *task)
	case buffer.OpComplete:
		if task != nil {
			return bp.remote.CompleteTask(ctx, *task)
		}
		return bp.remote.CompleteTaskByID(ctx, item.TaskID)
	case buffer.OpActivate:
		if task != nil {
			return bp.remote.ActivateTask(ctx, *task)
		}
		return bp.remote.ActivateTaskByID(ctx, item.TaskID)
	case buffer.OpDelete:
		return bp.remote.DeleteTask(ctx, item.TaskID)
	case buffer.OpDeleteAll:
		return bp.remote.DeleteAllTasks(ctx)
	case buffer.OpClearCompleted:
		return bp.remote.ClearCompletedTasks(ctx)
	default:
		return fmt.Errorf("unsupported operation %s", item.Operation)
	}
}
