package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*taskSource)(nil)

type taskSource struct {
	db DBTX
}

// NewTaskSource returns a Postgres-backed remote TaskDataSource.
func NewTaskSource(db DBTX) repository.TaskDataSource {
	return &taskSource{db: db}
}

func (s *taskSource) GetTasks(ctx context.Context) ([]domain.Task, error) {
	const query = `
	SELECT id, title, description, completed
	FROM tasks
	ORDER BY created_at, id
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, domain.NotAvailable(err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, domain.NotAvailable(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NotAvailable(err)
	}
	return tasks, nil
}

func (s *taskSource) GetTask(ctx context.Context, id string) (domain.Task, error) {
	const query = `
	SELECT id, title, description, completed
	FROM tasks
	WHERE id = $1
	`
	task, err := scanTask(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Task{}, domain.NotAvailable(err)
	}
	return task, nil
}

func (s *taskSource) SaveTask(ctx context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}

	const query = `
	INSERT INTO tasks (id, title, description, completed)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title,
		description = EXCLUDED.description,
		completed = EXCLUDED.completed,
		updated_at = NOW()
	`
	_, err := s.db.Exec(ctx, query, task.ID, task.Title, task.Description, task.Completed)
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

func (s *taskSource) ClearCompletedTasks(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE completed`)
	return err
}

func (s *taskSource) RefreshTasks(context.Context) {}

func (s *taskSource) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (s *taskSource) DeleteAllTasks(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tasks`)
	return err
}

func (s *taskSource) setCompleted(ctx context.Context, id string, completed bool) error {
	const query = `
	UPDATE tasks
	SET completed = $2,
		updated_at = NOW()
	WHERE id = $1
	`
	_, err := s.db.Exec(ctx, query, id, completed)
	return err
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var task domain.Task
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Completed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, domain.ErrDataNotAvailable
		}
		return domain.Task{}, err
	}
	return task, nil
}
