package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/todo/internal/infrastructure/buffer"
)

func TestMonitor_Refresh(t *testing.T) {
	var remoteUp atomic.Bool
	checks := map[string]Check{
		"local": func(context.Context) error { return nil },
		"remote": func(context.Context) error {
			if remoteUp.Load() {
				return nil
			}
			return errors.New("connection refused")
		},
	}

	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), "")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Enqueue(buffer.Item{TaskID: "1", Operation: buffer.OpDelete}))

	m := New(checks, store, time.Hour, zaptest.NewLogger(t))
	assert.False(t, m.IsOnline(), "offline before the first refresh")

	status := m.Refresh(context.Background())
	assert.Equal(t, map[string]bool{"local": true, "remote": false}, status.Components)
	assert.True(t, status.Buffer)
	assert.Equal(t, 1, status.BufferSize)
	assert.False(t, m.IsOnline())

	remoteUp.Store(true)
	m.Refresh(context.Background())
	assert.True(t, m.IsOnline())
	assert.True(t, m.GetStatus().Components["remote"])
}

func TestMonitor_NoBufferNoChecks(t *testing.T) {
	m := New(nil, nil, 0, nil)
	m.Start()
	defer m.Stop()

	status := m.GetStatus()
	assert.False(t, status.Buffer)
	assert.Empty(t, status.Components)
	assert.True(t, m.IsOnline())

	m.Stop()
}
