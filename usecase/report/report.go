package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/usecase/notify"
)

// Summary holds the daily counters.
type Summary struct {
	Overdue  int       `json:"overdue"`
	OnReview int       `json:"on_review"`
	Active   int       `json:"active"`
	At       time.Time `json:"at"`
}

// Text renders the admin message. label is the configured wall-clock time, e.g. "09:00".
func (s Summary) Text(label string) string {
	return fmt.Sprintf("Ежедневный отчет %s\nПросроченные: %d\nНа проверке: %d\nАктивные: %d",
		label, s.Overdue, s.OnReview, s.Active)
}

type UseCase struct {
	tasks    repository.TaskRepository
	notifier *notify.Dispatcher
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, notifier *notify.Dispatcher, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
	}
}

// Build counts overdue, on-review and active tasks as of now.
func (uc *UseCase) Build(ctx context.Context, now time.Time) (*Summary, error) {
	summary := &Summary{At: now}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, filter repository.TaskFilter) {
		g.Go(func() error {
			n, err := uc.tasks.Count(gctx, filter)
			*dst = n
			return err
		})
	}
	count(&summary.Overdue, repository.TaskFilter{Statuses: domain.ActiveStatuses, DeadlineBefore: &now})
	count(&summary.OnReview, repository.TaskFilter{Statuses: []domain.Status{domain.StatusOnReview}})
	count(&summary.Active, repository.TaskFilter{Statuses: domain.ActiveStatuses})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}
	return summary, nil
}

// Send builds the summary and delivers it to the admin. Only the build can fail;
// the delivery outcome is returned as a Result.
func (uc *UseCase) Send(ctx context.Context, now time.Time, label string) (*Summary, notify.Result, error) {
	summary, err := uc.Build(ctx, now)
	if err != nil {
		return nil, notify.Result{}, err
	}
	res := uc.notifier.DailyReport(ctx, summary.Text(label))
	uc.logger.Info("daily report sent",
		zap.Int("overdue", summary.Overdue),
		zap.Int("on_review", summary.OnReview),
		zap.Int("active", summary.Active),
		zap.Bool("delivered", res.Delivered),
	)
	return summary, res, nil
}
