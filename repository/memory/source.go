package memory

import (
	"context"
	"sync"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var _ repository.TaskDataSource = (*Source)(nil)

// Source is an in-memory TaskDataSource. It backs the "memory" remote backend
// and stands in for real stores in tests.
type Source struct {
	mu                 sync.RWMutex
	order              []string
	tasks              map[string]domain.Task
	emptyAsUnavailable bool
}

// Option configures a Source.
type Option func(*Source)

// WithEmptyAsUnavailable makes GetTasks fail with domain.ErrDataNotAvailable
// when the source holds no tasks, the way an empty local database does.
func WithEmptyAsUnavailable() Option {
	return func(s *Source) {
		s.emptyAsUnavailable = true
	}
}

// New creates an empty Source.
func New(opts ...Option) *Source {
	s := &Source{tasks: make(map[string]domain.Task)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTasks seeds the source without going through SaveTask.
func (s *Source) AddTasks(tasks ...domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range tasks {
		s.put(task)
	}
}

func (s *Source) GetTasks(context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 && s.emptyAsUnavailable {
		return nil, domain.ErrDataNotAvailable
	}
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *Source) GetTask(_ context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrDataNotAvailable
	}
	return task, nil
}

func (s *Source) SaveTask(_ context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(task)
	return nil
}

func (s *Source) CompleteTask(_ context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(task.WithCompleted(true))
	return nil
}

func (s *Source) CompleteTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(id, true)
}

func (s *Source) ActivateTask(_ context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(task.WithCompleted(false))
	return nil
}

func (s *Source) ActivateTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(id, false)
}

func (s *Source) ClearCompletedTasks(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if s.tasks[id].Completed {
			delete(s.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return nil
}

// RefreshTasks is a no-op; refresh policy belongs to the cached repository.
func (s *Source) RefreshTasks(context.Context) {}

func (s *Source) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return nil
	}
	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Source) DeleteAllTasks(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.tasks = make(map[string]domain.Task)
	return nil
}

// Len reports how many tasks are stored.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Source) setCompleted(id string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil
	}
	s.tasks[id] = task.WithCompleted(completed)
	return nil
}

func (s *Source) put(task domain.Task) {
	if _, ok := s.tasks[task.ID]; !ok {
		s.order = append(s.order, task.ID)
	}
	s.tasks[task.ID] = task
}
