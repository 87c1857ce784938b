package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/buffer"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*BufferedSource)(nil)

// BufferedSource wraps the remote store so writes that fail while it is
// unreachable are queued and replayed later. Reads go straight to the remote.
type BufferedSource struct {
	remote    repository.TaskDataSource
	processor *BufferProcessor
}

func NewBufferedSource(remote repository.TaskDataSource, processor *BufferProcessor) *BufferedSource {
	return &BufferedSource{remote: remote, processor: processor}
}

func (s *BufferedSource) GetTasks(ctx context.Context) ([]domain.Task, error) {
	return s.remote.GetTasks(ctx)
}

func (s *BufferedSource) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return s.remote.GetTask(ctx, id)
}

func (s *BufferedSource) SaveTask(ctx context.Context, task domain.Task) error {
	return s.bufferTask(ctx, buffer.OpSave, task)
}

func (s *BufferedSource) CompleteTask(ctx context.Context, task domain.Task) error {
	return s.bufferTask(ctx, buffer.OpComplete, task)
}

func (s *BufferedSource) CompleteTaskByID(ctx context.Context, id string) error {
	return s.bufferID(ctx, buffer.OpComplete, id)
}

func (s *BufferedSource) ActivateTask(ctx context.Context, task domain.Task) error {
	return s.bufferTask(ctx, buffer.OpActivate, task)
}

func (s *BufferedSource) ActivateTaskByID(ctx context.Context, id string) error {
	return s.bufferID(ctx, buffer.OpActivate, id)
}

func (s *BufferedSource) ClearCompletedTasks(ctx context.Context) error {
	return s.processor.BufferOperation(ctx, buffer.Item{Operation: buffer.OpClearCompleted})
}

func (s *BufferedSource) RefreshTasks(ctx context.Context) {
	s.remote.RefreshTasks(ctx)
}

func (s *BufferedSource) DeleteTask(ctx context.Context, id string) error {
	return s.bufferID(ctx, buffer.OpDelete, id)
}

func (s *BufferedSource) DeleteAllTasks(ctx context.Context) error {
	return s.processor.BufferOperation(ctx, buffer.Item{Operation: buffer.OpDeleteAll})
}

func (s *BufferedSource) bufferTask(ctx context.Context, operation string, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.processor.BufferOperation(ctx, buffer.Item{
		TaskID:    task.ID,
		Operation: operation,
		Data:      payload,
	})
}

func (s *BufferedSource) bufferID(ctx context.Context, operation, id string) error {
	if id == "" {
		return domain.ErrMissingTaskID
	}
	return s.processor.BufferOperation(ctx, buffer.Item{
		TaskID:    id,
		Operation: operation,
	})
}
