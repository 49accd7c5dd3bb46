package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/internal/infrastructure/kvstore"
	"github.com/fastygo/taskdesk/usecase/notify"
	"github.com/fastygo/taskdesk/usecase/report"
)

const (
	lastReportKey = "report:last_fired"
	dayLayout     = "2006-01-02"
)

// ReportSender builds and delivers the summary.
type ReportSender interface {
	Send(ctx context.Context, now time.Time, label string) (*report.Summary, notify.Result, error)
}

// MarkerStore persists the last fired date.
type MarkerStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// SchedulerConfig controls when the daily report fires.
type SchedulerConfig struct {
	// At is the local wall-clock time, "HH:MM".
	At       string
	Interval time.Duration
	Location *time.Location
}

// ReportScheduler polls the clock and sends the summary once per calendar day.
type ReportScheduler struct {
	sender  ReportSender
	markers MarkerStore
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     SchedulerConfig
	hour    int
	minute  int

	mu        sync.Mutex
	lastFired string
}

func NewReportScheduler(sender ReportSender, markers MarkerStore, logger *zap.Logger, cfg SchedulerConfig) (*ReportScheduler, error) {
	if cfg.At == "" {
		cfg.At = "09:00"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	at, err := time.Parse("15:04", cfg.At)
	if err != nil {
		return nil, fmt.Errorf("parse report time %q: %w", cfg.At, err)
	}

	s := &ReportScheduler{
		sender:  sender,
		markers: markers,
		logger:  logger,
		cfg:     cfg,
		hour:    at.Hour(),
		minute:  at.Minute(),
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
		),
	}
	s.lastFired = s.loadMarker()

	schedule := fmt.Sprintf("@every %ds", max(1, int(cfg.Interval.Seconds())))
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := s.Tick(ctx, time.Now()); err != nil {
			s.logger.Error("daily report failed, retrying on next tick", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule report: %w", err)
	}
	return s, nil
}

// Start launches the cron scheduler.
func (s *ReportScheduler) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("report scheduler started", zap.String("at", s.cfg.At), zap.Duration("interval", s.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (s *ReportScheduler) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("report scheduler stopped")
}

// Tick sends the report when now falls on the configured minute and the report
// has not gone out today. A build failure leaves the day open for the next tick;
// a failed delivery still closes it.
func (s *ReportScheduler) Tick(ctx context.Context, now time.Time) (bool, error) {
	local := now.In(s.cfg.Location)
	if local.Hour() != s.hour || local.Minute() != s.minute {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := local.Format(dayLayout)
	if s.lastFired == day {
		return false, nil
	}

	_, res, err := s.sender.Send(ctx, local, s.cfg.At)
	if err != nil {
		return false, err
	}
	if res.Failed() {
		s.logger.Warn("daily report not delivered", zap.Error(res.Err))
	}

	s.lastFired = day
	if s.markers != nil {
		if err := s.markers.Put(lastReportKey, []byte(day)); err != nil {
			s.logger.Warn("failed to persist report marker", zap.Error(err))
		}
	}
	return true, nil
}

// LastFired returns the date of the last sent report, "" when none.
func (s *ReportScheduler) LastFired() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFired
}

func (s *ReportScheduler) loadMarker() string {
	if s.markers == nil {
		return ""
	}
	raw, err := s.markers.Get(lastReportKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn("failed to load report marker", zap.Error(err))
		}
		return ""
	}
	return string(raw)
}

// cronLogger routes cron's internal messages to zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
