package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = 10 * time.Second
	checkTimeout    = 3 * time.Second
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	required bool
}

// Monitor periodically probes the record store, the dialogue backend and the
// local state file. The service is online while every required check passes.
type Monitor struct {
	checks []check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
		status:   Status{Services: map[string]bool{}},
	}
}

// Require registers a check whose failure takes the service offline.
func (m *Monitor) Require(name string, fn CheckFunc) {
	m.checks = append(m.checks, check{name: name, fn: fn, required: true})
}

// Observe registers a check that is reported but does not affect Online.
func (m *Monitor) Observe(name string, fn CheckFunc) {
	m.checks = append(m.checks, check{name: name, fn: fn})
}

// Start runs the first probe synchronously, then keeps probing in the background.
func (m *Monitor) Start() {
	m.Refresh(context.Background())
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

// Names lists the registered checks in order.
func (m *Monitor) Names() []string {
	names := make([]string, 0, len(m.checks))
	for _, c := range m.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and records the outcome.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{Online: true, Services: make(map[string]bool, len(m.checks))}
	for _, c := range m.checks {
		ok := m.probe(ctx, c)
		status.Services[c.name] = ok
		if !ok && c.required {
			status.Online = false
		}
	}
	status.LastCheck = time.Now()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	for name, ok := range status.Services {
		if was, seen := previous.Services[name]; seen && was != ok {
			m.logger.Info("dependency state changed", zap.String("service", name), zap.Bool("ok", ok))
		}
	}
	return status.clone()
}

func (m *Monitor) probe(ctx context.Context, c check) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := c.fn(ctx); err != nil {
		m.logger.Warn("health check failed", zap.String("service", c.name), zap.Error(err))
		return false
	}
	return true
}
