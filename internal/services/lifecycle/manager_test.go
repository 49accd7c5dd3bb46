package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_ShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	boom := errors.New("boom")

	m.Register("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})
	m.RegisterCloser("store", func() error {
		order = append(order, "store")
		return boom
	})
	m.Register("scheduler", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "hooks run under the shutdown timeout")
		order = append(order, "scheduler")
		return nil
	})
	m.Register("ignored", nil)

	assert.Equal(t, []string{"scheduler", "store", "http"}, m.Components())

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"scheduler", "store", "http"}, order)

	assert.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
	assert.Len(t, order, 3)
	assert.Empty(t, m.Components())
}

func TestManager_ListenStopsOnParentCancel(t *testing.T) {
	m := New(time.Second, nil)
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := m.Listen(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("listen context was not canceled")
	}
}
