package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// testPool connects to TASKS_TEST_DATABASE_URL or skips the test.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TASKS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TASKS_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM tasks`)
	require.NoError(t, err)
	return pool
}

func TestTaskSource_Integration(t *testing.T) {
	ctx := context.Background()
	source := NewTaskSource(testPool(t))

	tasks, err := source.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = source.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDataNotAvailable)

	a := domain.Task{ID: "a", Title: "first"}
	b := domain.Task{ID: "b", Description: "second"}
	require.NoError(t, source.SaveTask(ctx, a))
	require.NoError(t, source.SaveTask(ctx, b))
	require.NoError(t, source.CompleteTask(ctx, b))

	got, err := source.GetTask(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	require.NoError(t, source.ActivateTaskByID(ctx, "b"))
	require.NoError(t, source.CompleteTaskByID(ctx, "a"))
	require.NoError(t, source.ClearCompletedTasks(ctx))

	tasks, err = source.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{b}, tasks)

	require.NoError(t, source.DeleteTask(ctx, "b"))
	require.NoError(t, source.SaveTask(ctx, a))
	require.NoError(t, source.DeleteAllTasks(ctx))

	tasks, err = source.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
