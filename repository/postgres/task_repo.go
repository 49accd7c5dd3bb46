package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

const taskColumns = `id, title, description, status, deadline, owner_telegram_id, department, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	if task == nil {
		return 0, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (title, description, status, deadline, owner_telegram_id, department, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`

	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		task.Title,
		task.Description,
		string(task.Status),
		task.Deadline,
		task.OwnerID,
		task.Department,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID); err != nil {
		return 0, err
	}
	return task.ID, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.Status, at time.Time) error {
	const query = `
	UPDATE tasks
	SET status = $3,
		updated_at = $4
	WHERE id = $1 AND status = $2
	`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, string(expected), string(next), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *taskRepository) UpdateDeadline(ctx context.Context, id int64, deadline time.Time, allowed []domain.Status, at time.Time) error {
	const query = `
	UPDATE tasks
	SET deadline = $2,
		updated_at = $4
	WHERE id = $1 AND status = ANY($3)
	`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, deadline, statusStrings(allowed), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	where, args := taskWhere(filter)
	args = append(args, clampLimit(filter.Limit))
	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY %s LIMIT $%d`, taskColumns, where, taskOrder(filter.OrderBy), len(args))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Count(ctx context.Context, filter repository.TaskFilter) (int, error) {
	where, args := taskWhere(filter)
	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM tasks `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// missReason tells a missing row apart from a compare-and-swap miss.
func (r *taskRepository) missReason(ctx context.Context, id int64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrStaleTask
}

func taskWhere(filter repository.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.OwnerID != 0 {
		args = append(args, filter.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_telegram_id = $%d", len(args)))
	}
	if filter.DeadlineBefore != nil {
		args = append(args, *filter.DeadlineBefore)
		conds = append(conds, fmt.Sprintf("deadline < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func taskOrder(order repository.TaskOrder) string {
	if order == repository.OrderByUpdatedDesc {
		return "updated_at DESC, id DESC"
	}
	return "deadline ASC, id ASC"
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.Deadline,
		&task.OwnerID,
		&task.Department,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	task.Status = domain.Status(status)
	return &task, nil
}
