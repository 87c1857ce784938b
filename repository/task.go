package repository

import (
	"context"

	"github.com/fastygo/todo/domain"
)

// TaskDataSource is the capability shared by the local store, the remote store
// and the cached repository layered over both. Reads fail with
// domain.ErrDataNotAvailable when nothing matches or the store is unreachable.
type TaskDataSource interface {
	GetTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	SaveTask(ctx context.Context, task domain.Task) error
	CompleteTask(ctx context.Context, task domain.Task) error
	CompleteTaskByID(ctx context.Context, id string) error
	ActivateTask(ctx context.Context, task domain.Task) error
	ActivateTaskByID(ctx context.Context, id string) error
	ClearCompletedTasks(ctx context.Context) error
	RefreshTasks(ctx context.Context)
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) error
}
