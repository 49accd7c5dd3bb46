package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_RequiredChecksDecideOnline(t *testing.T) {
	storeErr := error(nil)
	m := New(0, nil)
	m.Require("store", func(context.Context) error { return storeErr })
	m.Observe("redis", func(context.Context) error { return errors.New("refused") })

	status := m.Refresh(context.Background())
	assert.True(t, status.Online)
	assert.Equal(t, map[string]bool{"store": true, "redis": false}, status.Services)
	assert.True(t, m.IsOnline())

	storeErr = errors.New("disk full")
	status = m.Refresh(context.Background())
	assert.False(t, status.Online)
	assert.False(t, m.GetStatus().Services["store"])
	assert.Equal(t, []string{"redis", "store"}, m.Names())
}

func TestMonitor_StatusIsACopy(t *testing.T) {
	m := New(0, nil)
	m.Require("state", func(context.Context) error { return nil })
	m.Refresh(context.Background())

	status := m.GetStatus()
	status.Services["state"] = false
	assert.True(t, m.GetStatus().Services["state"])
}

func TestMonitor_StartStop(t *testing.T) {
	m := New(0, nil)
	m.Require("store", func(context.Context) error { return nil })
	m.Start()
	assert.True(t, m.IsOnline())
	m.Stop()
	m.Stop()
}
