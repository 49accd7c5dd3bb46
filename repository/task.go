package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskdesk/domain"
)

// TaskOrder selects the ordering of a task scan.
type TaskOrder int

const (
	OrderByDeadline TaskOrder = iota
	OrderByUpdatedDesc
)

// TaskFilter describes a snapshot query. Zero values disable a condition.
type TaskFilter struct {
	Statuses []domain.Status
	OwnerID  int64
	// DeadlineBefore restricts the scan to deadline < DeadlineBefore (overdue views).
	DeadlineBefore *time.Time
	OrderBy        TaskOrder
	Limit          int
}

type TaskRepository interface {
	Insert(ctx context.Context, task *domain.Task) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	// UpdateStatus moves the task to next only while it still has the expected status.
	// It returns domain.ErrStaleTask when the row changed in the meantime.
	UpdateStatus(ctx context.Context, id int64, expected, next domain.Status, at time.Time) error
	// UpdateDeadline rewrites the deadline only while the status is one of allowed.
	UpdateDeadline(ctx context.Context, id int64, deadline time.Time, allowed []domain.Status, at time.Time) error
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int, error)
}
