package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository/cached"
	"github.com/fastygo/todo/repository/memory"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) GetTasks(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockSource) GetTask(ctx context.Context, id string) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockSource) SaveTask(ctx context.Context, task domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockSource) CompleteTask(ctx context.Context, task domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockSource) CompleteTaskByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSource) ActivateTask(ctx context.Context, task domain.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockSource) ActivateTaskByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSource) ClearCompletedTasks(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSource) RefreshTasks(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockSource) DeleteTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSource) DeleteAllTasks(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestListTasks_RefreshesOnFirstLoadOnly(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	tasks := []domain.Task{
		{ID: "1", Title: "a"},
		{ID: "2", Title: "b", Completed: true},
	}
	source.On("RefreshTasks", ctx).Once()
	source.On("GetTasks", mock.Anything).Return(tasks, nil).Twice()

	uc := New(source, zaptest.NewLogger(t))

	got, err := uc.ListTasks(ctx, domain.FilterAll, false)
	require.NoError(t, err)
	assert.Equal(t, tasks, got)

	got, err = uc.ListTasks(ctx, domain.FilterCompleted, false)
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{tasks[1]}, got)

	source.AssertExpectations(t)
}

func TestListTasks_ForceUpdate(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	source.On("RefreshTasks", ctx).Twice()
	source.On("GetTasks", mock.Anything).Return([]domain.Task{}, nil)

	uc := New(source, nil)
	_, err := uc.ListTasks(ctx, domain.FilterAll, false)
	require.NoError(t, err)
	_, err = uc.ListTasks(ctx, domain.FilterActive, true)
	require.NoError(t, err)

	source.AssertNumberOfCalls(t, "RefreshTasks", 2)
}

func TestListTasks_PropagatesError(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	source.On("RefreshTasks", ctx)
	source.On("GetTasks", mock.Anything).Return(nil, domain.ErrDataNotAvailable)

	uc := New(source, zaptest.NewLogger(t))
	_, err := uc.ListTasks(ctx, domain.FilterAll, false)
	assert.ErrorIs(t, err, domain.ErrDataNotAvailable)
}

// gatedSource holds the first GetTasks call, after its read, until release
// is closed.
type gatedSource struct {
	*memory.Source
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		Source:  memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) GetTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := g.Source.GetTasks(ctx)
	if g.calls.Add(1) == 1 {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return tasks, err
}

type listResult struct {
	tasks []domain.Task
	err   error
}

func listAsync(ctx context.Context, uc *UseCase, forceUpdate bool) <-chan listResult {
	out := make(chan listResult, 1)
	go func() {
		tasks, err := uc.ListTasks(ctx, domain.FilterAll, forceUpdate)
		out <- listResult{tasks: tasks, err: err}
	}()
	return out
}

func TestListTasks_ForceUpdateSkipsInFlightLoad(t *testing.T) {
	ctx := context.Background()
	source := newGatedSource()
	old := domain.Task{ID: "1", Title: "old"}
	source.AddTasks(old)
	uc := New(source, zaptest.NewLogger(t))

	first := listAsync(ctx, uc, false)
	<-source.entered

	fresh := domain.Task{ID: "2", Title: "fresh"}
	source.AddTasks(fresh)

	got, err := uc.ListTasks(ctx, domain.FilterAll, true)
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{old, fresh}, got)

	close(source.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, []domain.Task{old}, res.tasks)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestListTasks_SharedLoadSurvivesCallerCancel(t *testing.T) {
	source := newGatedSource()
	task := domain.Task{ID: "1", Title: "walk"}
	source.AddTasks(task)
	uc := New(source, zaptest.NewLogger(t))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	first := listAsync(ctxA, uc, false)
	<-source.entered

	second := listAsync(context.Background(), uc, false)
	time.Sleep(50 * time.Millisecond)

	cancelA()
	res := <-first
	assert.ErrorIs(t, res.err, context.Canceled)

	close(source.release)
	res = <-second
	require.NoError(t, res.err)
	assert.Equal(t, []domain.Task{task}, res.tasks)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestListTasks_CanceledCallerReturnsEarly(t *testing.T) {
	source := newGatedSource()
	uc := New(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pending := listAsync(ctx, uc, false)
	<-source.entered
	cancel()

	select {
	case res := <-pending:
		assert.ErrorIs(t, res.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ListTasks did not return after cancel")
	}
	close(source.release)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("empty task rejected", func(t *testing.T) {
		source := new(mockSource)
		uc := New(source, nil)

		_, err := uc.CreateTask(ctx, "  ", "")
		assert.ErrorIs(t, err, domain.ErrEmptyTask)
		source.AssertNotCalled(t, "SaveTask", mock.Anything, mock.Anything)
	})

	t.Run("saved with generated id", func(t *testing.T) {
		source := new(mockSource)
		source.On("SaveTask", ctx, mock.MatchedBy(func(task domain.Task) bool {
			return task.ID != "" && task.Title == "milk" && !task.Completed
		})).Return(nil).Once()
		uc := New(source, nil)

		task, err := uc.CreateTask(ctx, "milk", "")
		require.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		source.AssertExpectations(t)
	})

	t.Run("store error returned with task", func(t *testing.T) {
		source := new(mockSource)
		storeErr := errors.New("remote down")
		source.On("SaveTask", ctx, mock.Anything).Return(storeErr)
		uc := New(source, zaptest.NewLogger(t))

		task, err := uc.CreateTask(ctx, "", "notes")
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, "notes", task.Description)
	})
}

func TestUpdateTask_ResetsCompletion(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	source.On("SaveTask", ctx, domain.Task{ID: "7", Title: "new"}).Return(nil).Once()

	uc := New(source, nil)
	task, err := uc.UpdateTask(ctx, "7", "new", "")
	require.NoError(t, err)
	assert.False(t, task.Completed)

	_, err = uc.UpdateTask(ctx, "", "x", "")
	assert.ErrorIs(t, err, domain.ErrMissingTaskID)
	_, err = uc.UpdateTask(ctx, "7", "", " ")
	assert.ErrorIs(t, err, domain.ErrEmptyTask)

	source.AssertExpectations(t)
}

func TestSaveTask_Validation(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	done := domain.Task{ID: "3", Title: "ship", Completed: true}
	source.On("SaveTask", ctx, done).Return(nil).Once()
	uc := New(source, nil)

	_, err := uc.SaveTask(ctx, domain.Task{ID: "3", Title: " ", Completed: true})
	assert.ErrorIs(t, err, domain.ErrEmptyTask)
	_, err = uc.SaveTask(ctx, domain.Task{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingTaskID)

	saved, err := uc.SaveTask(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, done, saved)
	source.AssertExpectations(t)
}

func TestGetTask_RequiresID(t *testing.T) {
	uc := New(new(mockSource), nil)
	_, err := uc.GetTask(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrMissingTaskID)
}

func TestCompleteTask_WarmsCacheOnPrecondition(t *testing.T) {
	ctx := context.Background()
	remote := memory.New()
	remote.AddTasks(domain.Task{ID: "1", Title: "walk"})
	local := memory.New(memory.WithEmptyAsUnavailable())
	repo := cached.New(remote, local, zaptest.NewLogger(t))

	uc := New(repo, zaptest.NewLogger(t))
	require.NoError(t, uc.CompleteTask(ctx, "1"))

	stored, err := remote.GetTask(ctx, "1")
	require.NoError(t, err)
	assert.True(t, stored.Completed)

	require.NoError(t, uc.ActivateTask(ctx, "1"))
	stored, err = local.GetTask(ctx, "1")
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

func TestDeleteTask_UnknownID(t *testing.T) {
	ctx := context.Background()
	repo := cached.New(memory.New(), memory.New(memory.WithEmptyAsUnavailable()), zaptest.NewLogger(t))

	uc := New(repo, nil)
	err := uc.DeleteTask(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotAvailable))
	assert.ErrorIs(t, err, domain.ErrTaskNotCached)
}

func TestByID_NonPreconditionErrorNotRetried(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	storeErr := errors.New("write failed")
	source.On("DeleteTask", ctx, "1").Return(storeErr).Once()

	uc := New(source, nil)
	assert.ErrorIs(t, uc.DeleteTask(ctx, "1"), storeErr)
	source.AssertNotCalled(t, "GetTasks", mock.Anything)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	source.On("GetTasks", ctx).Return([]domain.Task{
		{ID: "1", Title: "a"},
		{ID: "2", Title: "b", Completed: true},
		{ID: "3", Title: "c", Completed: true},
	}, nil)

	stats, err := New(source, nil).Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Active: 1, Completed: 2}, stats)
}
