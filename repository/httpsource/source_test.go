package httpsource

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/middleware"
	"github.com/fastygo/todo/internal/router"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/repository/cached"
	"github.com/fastygo/todo/repository/memory"
	taskUC "github.com/fastygo/todo/usecase/task"
)

// serve starts the task API over an in-memory listener backed by store and
// returns a client dialing it.
func serve(t *testing.T, store *memory.Source, auth middleware.Middleware) *fasthttp.Client {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := cached.New(store, memory.New(memory.WithEmptyAsUnavailable()), logger)
	uc := taskUC.New(repo, logger)
	r := router.New(router.Handlers{
		Task: handler.NewTaskHandler(uc, httpcontext.NewAdapter(time.Second), logger),
	}, auth)

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: r.Handler}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = ln.Close()
	})

	return &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestSource_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()
	source := New("http://tasks.test/", WithClient(serve(t, backing, nil)))

	tasks, err := source.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = source.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDataNotAvailable)

	a := domain.Task{ID: "a", Title: "first"}
	b := domain.Task{ID: "b", Description: "second"}
	require.NoError(t, source.SaveTask(ctx, a))
	require.NoError(t, source.SaveTask(ctx, b))
	require.NoError(t, source.CompleteTaskByID(ctx, "a"))

	got, err := source.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	stored, err := backing.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.True(t, stored.Completed)

	require.NoError(t, source.ActivateTask(ctx, got))
	require.NoError(t, source.CompleteTask(ctx, b))
	require.NoError(t, source.ClearCompletedTasks(ctx))

	tasks, err = source.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{a}, tasks)

	require.NoError(t, source.DeleteTask(ctx, "a"))
	require.NoError(t, source.DeleteTask(ctx, "a"), "unknown id is a no-op")
	require.NoError(t, source.SaveTask(ctx, b))
	require.NoError(t, source.DeleteAllTasks(ctx))
	assert.Equal(t, 0, backing.Len())

	assert.NoError(t, source.Ping(ctx))
}

func TestSource_BearerToken(t *testing.T) {
	ctx := context.Background()
	client := serve(t, memory.New(), middleware.JWTAuth("s3cret", "todo", nil))

	_, err := New("http://tasks.test", WithClient(client)).GetTasks(ctx)
	assert.ErrorIs(t, err, domain.ErrDataNotAvailable)

	token, err := middleware.SignToken("s3cret", "todo", "sync-client")
	require.NoError(t, err)
	source := New("http://tasks.test", WithClient(client), WithToken(token))

	require.NoError(t, source.SaveTask(ctx, domain.Task{ID: "1", Title: "x"}))
	err = New("http://tasks.test", WithClient(client)).SaveTask(ctx, domain.Task{ID: "2", Title: "y"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestSource_Unreachable(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	require.NoError(t, ln.Close())
	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	source := New("http://tasks.test", WithClient(client), WithTimeout(100*time.Millisecond))

	_, err := source.GetTasks(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataNotAvailable)
	assert.Error(t, source.SaveTask(context.Background(), domain.Task{ID: "1", Title: "x"}))
	assert.Error(t, source.Ping(context.Background()))
}
