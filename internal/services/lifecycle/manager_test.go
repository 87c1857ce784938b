package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShutdown_ReverseOrderAndErrors(t *testing.T) {
	m := New(time.Second, zaptest.NewLogger(t))

	var order []string
	failure := errors.New("close failed")
	m.Register("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	m.Register("buffer", func(context.Context) error {
		order = append(order, "buffer")
		return failure
	})
	m.Register("server", func(context.Context) error {
		order = append(order, "server")
		return nil
	})
	m.Register("ignored", nil)

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"server", "buffer", "store"}, order)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 3, "hooks run once")

	m.Register("late", func(context.Context) error {
		order = append(order, "late")
		return nil
	})
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdown_AppliesTimeout(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
