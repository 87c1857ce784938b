// Package cached implements the task repository: an in-memory cache layered
// over a remote and a local TaskDataSource.
//
// Reads are cache-aside. A full listing is served from the cache when it is
// initialized and clean, otherwise from the local store, otherwise from the
// remote store. Data fetched from the remote is mirrored into the local store.
// RefreshTasks marks the cache dirty so the next listing goes to the remote.
//
// Writes reach both stores unconditionally and then update the cache. There
// is no rollback: when one store fails the stores may diverge. Failures are
// logged and returned joined so callers can notice.
//
// The cache is guarded by a mutex that is never held across store I/O, so two
// overlapping reads may both reset the cache; the last one wins.
package cached

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*Repository)(nil)

// Repository is the single source of truth for task reads.
type Repository struct {
	remote repository.TaskDataSource
	local  repository.TaskDataSource
	logger *zap.Logger

	mu    sync.Mutex
	cache *taskCache
	dirty bool
}

// New builds a repository over the given stores.
func New(remote, local repository.TaskDataSource, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		remote: remote,
		local:  local,
		logger: logger,
	}
}

// GetTasks returns every task, consulting cache, local and remote in that order.
func (r *Repository) GetTasks(ctx context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	if r.cache != nil && !r.dirty {
		tasks := r.cache.values()
		r.mu.Unlock()
		r.logger.Debug("serving tasks from cache", zap.Int("count", len(tasks)))
		return tasks, nil
	}
	dirty := r.dirty
	r.mu.Unlock()

	if dirty {
		return r.getTasksFromRemote(ctx)
	}

	tasks, err := r.local.GetTasks(ctx)
	if err != nil {
		r.logger.Debug("local tasks not available, querying remote", zap.Error(err))
		return r.getTasksFromRemote(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshCache(tasks)
	return r.cache.values(), nil
}

// GetTask returns a single task. A hit in the local store is returned without
// being cached.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if task, ok := r.cachedTask(id); ok {
		return task, nil
	}

	task, err := r.local.GetTask(ctx, id)
	if err == nil {
		return task, nil
	}

	task, err = r.remote.GetTask(ctx, id)
	if err != nil {
		r.logger.Debug("task not available", zap.String("task_id", id), zap.Error(err))
		return domain.Task{}, domain.NotAvailable(err)
	}
	return task, nil
}

// SaveTask writes task to remote then local, then upserts the cache entry.
func (r *Repository) SaveTask(ctx context.Context, task domain.Task) error {
	err := r.writeBoth("save", task.ID, func(source repository.TaskDataSource) error {
		return source.SaveTask(ctx, task)
	})

	r.mu.Lock()
	r.ensureCache().put(task)
	r.mu.Unlock()
	return err
}

func (r *Repository) CompleteTask(ctx context.Context, task domain.Task) error {
	err := r.writeBoth("complete", task.ID, func(source repository.TaskDataSource) error {
		return source.CompleteTask(ctx, task)
	})

	r.mu.Lock()
	r.ensureCache().put(task.WithCompleted(true))
	r.mu.Unlock()
	return err
}

// CompleteTaskByID resolves id through the cache; an uncached id is a caller
// bug reported as domain.ErrTaskNotCached.
func (r *Repository) CompleteTaskByID(ctx context.Context, id string) error {
	task, ok := r.cachedTask(id)
	if !ok {
		return r.notCached("complete", id)
	}
	return r.CompleteTask(ctx, task)
}

func (r *Repository) ActivateTask(ctx context.Context, task domain.Task) error {
	err := r.writeBoth("activate", task.ID, func(source repository.TaskDataSource) error {
		return source.ActivateTask(ctx, task)
	})

	r.mu.Lock()
	r.ensureCache().put(task.WithCompleted(false))
	r.mu.Unlock()
	return err
}

func (r *Repository) ActivateTaskByID(ctx context.Context, id string) error {
	task, ok := r.cachedTask(id)
	if !ok {
		return r.notCached("activate", id)
	}
	return r.ActivateTask(ctx, task)
}

func (r *Repository) ClearCompletedTasks(ctx context.Context) error {
	err := r.writeBoth("clear_completed", "", func(source repository.TaskDataSource) error {
		return source.ClearCompletedTasks(ctx)
	})

	r.mu.Lock()
	r.ensureCache().removeCompleted()
	r.mu.Unlock()
	return err
}

// RefreshTasks marks the cache dirty; the next GetTasks goes to the remote.
func (r *Repository) RefreshTasks(context.Context) {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

func (r *Repository) DeleteAllTasks(ctx context.Context) error {
	err := r.writeBoth("delete_all", "", func(source repository.TaskDataSource) error {
		return source.DeleteAllTasks(ctx)
	})

	r.mu.Lock()
	r.ensureCache().clear()
	r.mu.Unlock()
	return err
}

// DeleteTask removes a cached task from both stores and the cache.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if _, ok := r.cachedTask(id); !ok {
		return r.notCached("delete", id)
	}

	err := r.writeBoth("delete", id, func(source repository.TaskDataSource) error {
		return source.DeleteTask(ctx, id)
	})

	r.mu.Lock()
	r.ensureCache().remove(id)
	r.mu.Unlock()
	return err
}

func (r *Repository) getTasksFromRemote(ctx context.Context) ([]domain.Task, error) {
	tasks, err := r.remote.GetTasks(ctx)
	if err != nil {
		r.logger.Warn("remote tasks not available", zap.Error(err))
		return nil, domain.NotAvailable(err)
	}

	r.mu.Lock()
	r.refreshCache(tasks)
	values := r.cache.values()
	r.mu.Unlock()

	r.refreshLocal(ctx, tasks)
	return values, nil
}

// refreshLocal mirrors a remote snapshot into the local store. Failures are
// logged, not returned.
func (r *Repository) refreshLocal(ctx context.Context, tasks []domain.Task) {
	if err := r.local.DeleteAllTasks(ctx); err != nil {
		r.logger.Warn("failed to clear local tasks", zap.Error(err))
	}
	for _, task := range tasks {
		if err := r.local.SaveTask(ctx, task); err != nil {
			r.logger.Warn("failed to mirror task locally", zap.String("task_id", task.ID), zap.Error(err))
		}
	}
}

// refreshCache must be called with r.mu held.
func (r *Repository) refreshCache(tasks []domain.Task) {
	r.ensureCache().reset(tasks)
	r.dirty = false
}

// ensureCache must be called with r.mu held.
func (r *Repository) ensureCache() *taskCache {
	if r.cache == nil {
		r.cache = newTaskCache()
	}
	return r.cache
}

func (r *Repository) cachedTask(id string) (domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil || r.cache.len() == 0 {
		return domain.Task{}, false
	}
	return r.cache.get(id)
}

func (r *Repository) writeBoth(operation, id string, write func(repository.TaskDataSource) error) error {
	var result error
	for _, store := range []struct {
		name   string
		source repository.TaskDataSource
	}{
		{name: "remote", source: r.remote},
		{name: "local", source: r.local},
	} {
		if err := write(store.source); err != nil {
			r.logger.Warn("task write failed",
				zap.String("store", store.name),
				zap.String("operation", operation),
				zap.String("task_id", id),
				zap.Error(err))
			result = errors.Join(result, err)
		}
	}
	return result
}

func (r *Repository) notCached(operation, id string) error {
	r.logger.Warn("task not in cache", zap.String("operation", operation), zap.String("task_id", id))
	return domain.WrapError(domain.ErrCodePrecondition, operation+" "+id, domain.ErrTaskNotCached)
}
