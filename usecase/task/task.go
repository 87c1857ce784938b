package task

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const loadKey = "tasks"

type UseCase struct {
	tasks       repository.TaskDataSource
	logger      *zap.Logger
	loads       singleflight.Group
	loadTimeout time.Duration

	mu        sync.Mutex
	firstLoad bool
}

func New(tasks repository.TaskDataSource, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:       tasks,
		logger:      logger,
		loadTimeout: 30 * time.Second,
		firstLoad:   true,
	}
}

// ListTasks loads tasks and applies filter. The first call and any call with
// forceUpdate mark the repository dirty so data comes from the remote store;
// such a call never joins a load that started before the refresh.
// Concurrent loads share one repository call, which outlives any single
// caller's cancellation.
func (uc *UseCase) ListTasks(ctx context.Context, filter domain.Filter, forceUpdate bool) ([]domain.Task, error) {
	uc.mu.Lock()
	refresh := forceUpdate || uc.firstLoad
	uc.firstLoad = false
	uc.mu.Unlock()

	if refresh {
		uc.tasks.RefreshTasks(ctx)
		uc.loads.Forget(loadKey)
	}

	results := uc.loads.DoChan(loadKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.loadTimeout)
		defer cancel()
		return uc.tasks.GetTasks(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			uc.logger.Warn("failed to load tasks", zap.Error(res.Err))
			return nil, res.Err
		}
		if res.Shared {
			uc.logger.Debug("task load shared with concurrent caller")
		}
		return domain.FilterTasks(res.Val.([]domain.Task), filter), nil
	}
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, domain.ErrMissingTaskID
	}
	return uc.tasks.GetTask(ctx, id)
}

// CreateTask rejects tasks with neither title nor description.
func (uc *UseCase) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	task := domain.NewTask(title, description)
	if task.IsEmpty() {
		return domain.Task{}, domain.ErrEmptyTask
	}
	if err := uc.tasks.SaveTask(ctx, task); err != nil {
		uc.logger.Error("task saved with store errors", zap.String("task_id", task.ID), zap.Error(err))
		return task, err
	}
	return task, nil
}

// UpdateTask replaces title and description; the task comes back active.
func (uc *UseCase) UpdateTask(ctx context.Context, id, title, description string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, domain.ErrMissingTaskID
	}
	task := domain.Task{ID: id, Title: title, Description: description}
	if task.IsEmpty() {
		return domain.Task{}, domain.ErrEmptyTask
	}
	if err := uc.tasks.SaveTask(ctx, task); err != nil {
		uc.logger.Error("task saved with store errors", zap.String("task_id", id), zap.Error(err))
		return task, err
	}
	return task, nil
}

// SaveTask stores task as given, completion flag included.
func (uc *UseCase) SaveTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	if strings.TrimSpace(task.ID) == "" {
		return domain.Task{}, domain.ErrMissingTaskID
	}
	if task.IsEmpty() {
		return domain.Task{}, domain.ErrEmptyTask
	}
	return task, uc.tasks.SaveTask(ctx, task)
}

func (uc *UseCase) CompleteTask(ctx context.Context, id string) error {
	return uc.byID(ctx, id, "complete", uc.tasks.CompleteTaskByID)
}

func (uc *UseCase) ActivateTask(ctx context.Context, id string) error {
	return uc.byID(ctx, id, "activate", uc.tasks.ActivateTaskByID)
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	return uc.byID(ctx, id, "delete", uc.tasks.DeleteTask)
}

func (uc *UseCase) ClearCompletedTasks(ctx context.Context) error {
	return uc.tasks.ClearCompletedTasks(ctx)
}

func (uc *UseCase) DeleteAllTasks(ctx context.Context) error {
	return uc.tasks.DeleteAllTasks(ctx)
}

func (uc *UseCase) Refresh(ctx context.Context) {
	uc.tasks.RefreshTasks(ctx)
}

func (uc *UseCase) Statistics(ctx context.Context) (domain.Stats, error) {
	tasks, err := uc.tasks.GetTasks(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.CountTasks(tasks), nil
}

// byID runs op and, when the repository has not cached id yet, loads the task
// list once and retries.
func (uc *UseCase) byID(ctx context.Context, id, operation string, op func(context.Context, string) error) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingTaskID
	}

	err := op(ctx, id)
	if !domain.IsDomainError(err, domain.ErrCodePrecondition) {
		return err
	}

	uc.logger.Debug("warming task cache", zap.String("operation", operation), zap.String("task_id", id))
	if _, loadErr := uc.tasks.GetTasks(ctx); loadErr != nil {
		return loadErr
	}
	if err := op(ctx, id); err != nil {
		if domain.IsDomainError(err, domain.ErrCodePrecondition) {
			return domain.WrapError(domain.ErrCodeNotAvailable, "task "+id+" not found", err)
		}
		return err
	}
	return nil
}
