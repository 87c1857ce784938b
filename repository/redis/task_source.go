package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*taskSource)(nil)

const clearAttempts = 5

// taskSource keeps each task as JSON in a hash and its first-insert time in a
// sorted set that drives listing order.
type taskSource struct {
	client redislib.UniversalClient
	prefix string
}

// NewTaskSource creates a Redis-backed remote TaskDataSource.
func NewTaskSource(client redislib.UniversalClient, prefix string) repository.TaskDataSource {
	if prefix == "" {
		prefix = "todo:"
	}
	return &taskSource{
		client: client,
		prefix: prefix,
	}
}

func (s *taskSource) GetTasks(ctx context.Context) ([]domain.Task, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NotAvailable(err)
	}
	tasks := []domain.Task{}
	if len(ids) == 0 {
		return tasks, nil
	}

	values, err := s.client.HMGet(ctx, s.tasksKey(), ids...).Result()
	if err != nil {
		return nil, domain.NotAvailable(err)
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var task domain.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, domain.NotAvailable(err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *taskSource) GetTask(ctx context.Context, id string) (domain.Task, error) {
	raw, err := s.client.HGet(ctx, s.tasksKey(), id).Result()
	if err != nil {
		if err == redislib.Nil {
			return domain.Task{}, domain.ErrDataNotAvailable
		}
		return domain.Task{}, domain.NotAvailable(err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return domain.Task{}, domain.NotAvailable(err)
	}
	return task, nil
}

func (s *taskSource) SaveTask(ctx context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.HSet(ctx, s.tasksKey(), task.ID, payload)
		pipe.ZAddNX(ctx, s.orderKey(), redislib.Z{
			Score:  float64(time.Now().UnixNano()),
			Member: task.ID,
		})
		return nil
	})
	return err
}

func (s *taskSource) CompleteTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(true))
}

func (s *taskSource) CompleteTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(ctx, id, true)
}

func (s *taskSource) ActivateTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(false))
}

func (s *taskSource) ActivateTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(ctx, id, false)
}

// ClearCompletedTasks removes completed tasks in a WATCH transaction on the
// task hash; a concurrent write to the hash aborts and retries the pass.
func (s *taskSource) ClearCompletedTasks(ctx context.Context) error {
	clearTx := func(tx *redislib.Tx) error {
		values, err := tx.HGetAll(ctx, s.tasksKey()).Result()
		if err != nil {
			return domain.NotAvailable(err)
		}
		var completed []string
		for id, raw := range values {
			var task domain.Task
			if err := json.Unmarshal([]byte(raw), &task); err != nil {
				return domain.NotAvailable(err)
			}
			if task.Completed {
				completed = append(completed, id)
			}
		}
		if len(completed) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
			s.queueRemove(ctx, pipe, completed)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < clearAttempts; attempt++ {
		err = s.client.Watch(ctx, clearTx, s.tasksKey())
		if !errors.Is(err, redislib.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *taskSource) RefreshTasks(context.Context) {}

func (s *taskSource) DeleteTask(ctx context.Context, id string) error {
	return s.remove(ctx, id)
}

func (s *taskSource) DeleteAllTasks(ctx context.Context) error {
	return s.client.Del(ctx, s.tasksKey(), s.orderKey()).Err()
}

func (s *taskSource) setCompleted(ctx context.Context, id string, completed bool) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		if err == domain.ErrDataNotAvailable {
			return nil
		}
		return err
	}
	return s.SaveTask(ctx, task.WithCompleted(completed))
}

func (s *taskSource) remove(ctx context.Context, ids ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		s.queueRemove(ctx, pipe, ids)
		return nil
	})
	return err
}

func (s *taskSource) queueRemove(ctx context.Context, pipe redislib.Pipeliner, ids []string) {
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe.HDel(ctx, s.tasksKey(), ids...)
	pipe.ZRem(ctx, s.orderKey(), members...)
}

func (s *taskSource) tasksKey() string {
	return fmt.Sprintf("%stasks", s.prefix)
}

func (s *taskSource) orderKey() string {
	return fmt.Sprintf("%stasks:order", s.prefix)
}
