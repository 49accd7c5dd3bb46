package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/api/bot"
	"github.com/fastygo/taskdesk/pkg/logger"
)

// UpdateSource is the long-polling side of the Bot API.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error)
}

// Handler consumes decoded events.
type Handler interface {
	Dispatch(ctx context.Context, ev bot.Event) error
}

// PollerConfig tunes the polling loop.
type PollerConfig struct {
	Wait           time.Duration
	Backoff        time.Duration
	HandlerTimeout time.Duration
}

// Poller pulls updates with getUpdates. Each actor's events are handled in
// update order by one worker; different actors run concurrently.
type Poller struct {
	source  UpdateSource
	handler Handler
	cfg     PollerConfig
	logger  *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	queues map[int64]*actorQueue
}

type queuedEvent struct {
	updateID int64
	ev       bot.Event
}

// actorQueue exists in Poller.queues only while its worker is running.
type actorQueue struct {
	pending []queuedEvent
}

func NewPoller(source UpdateSource, handler Handler, cfg PollerConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 3 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	return &Poller{
		source:  source,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		queues:  make(map[int64]*actorQueue),
	}
}

// Run polls until ctx is canceled, then waits for in-flight events.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("telegram polling started", zap.Duration("wait", p.cfg.Wait))
	defer p.wg.Wait()

	var offset int64
	for {
		if ctx.Err() != nil {
			p.logger.Info("telegram polling stopped")
			return nil
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.cfg.Wait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			delay := p.cfg.Backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			p.logger.Warn("get updates failed", zap.Error(err), zap.Duration("retry_in", delay))
			sleep(ctx, delay)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.dispatch(ctx, u)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, u Update) {
	ev, ok := Decode(u)
	if !ok {
		p.logger.Debug("update skipped", zap.Int64("update_id", u.UpdateID))
		return
	}

	p.mu.Lock()
	q, running := p.queues[ev.ActorID]
	if !running {
		q = &actorQueue{}
		p.queues[ev.ActorID] = q
	}
	q.pending = append(q.pending, queuedEvent{updateID: u.UpdateID, ev: ev})
	p.mu.Unlock()

	if running {
		return
	}
	p.wg.Add(1)
	go p.drain(ctx, ev.ActorID, q)
}

func (p *Poller) drain(ctx context.Context, actorID int64, q *actorQueue) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		if len(q.pending) == 0 {
			delete(p.queues, actorID)
			p.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		p.mu.Unlock()

		p.handle(ctx, next)
	}
}

func (p *Poller) handle(ctx context.Context, item queuedEvent) {
	// In-flight events finish even when polling stops.
	evCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.HandlerTimeout)
	defer cancel()
	evCtx = logger.ContextWithRequestID(evCtx, uuid.NewString())

	if err := p.handler.Dispatch(evCtx, item.ev); err != nil {
		logger.WithRequestID(evCtx, p.logger).Debug("update dispatch failed", zap.Int64("update_id", item.updateID), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
