package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

const taskColumns = `id, title, description, status, deadline, owner_telegram_id, department, created_at, updated_at`

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository returns a SQLite-backed implementation of TaskRepository.
func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	if task == nil {
		return 0, domain.ErrInvalidPayload
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, deadline, owner_telegram_id, department, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.Title,
		task.Description,
		string(task.Status),
		formatTime(task.Deadline),
		task.OwnerID,
		task.Department,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	task.ID = id
	return id, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.Status, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(next), formatTime(at), id, string(expected))
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

func (r *taskRepository) UpdateDeadline(ctx context.Context, id int64, deadline time.Time, allowed []domain.Status, at time.Time) error {
	if len(allowed) == 0 {
		return domain.ErrStaleTask
	}
	in, inArgs := inClause("status", allowed)
	args := append([]any{formatTime(deadline), formatTime(at), id}, inArgs...)
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE tasks SET deadline = ?, updated_at = ? WHERE id = ? AND `+in, args...)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	where, args := taskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY ` + taskOrder(filter.OrderBy) + ` LIMIT ?`
	args = append(args, clampLimit(filter.Limit))

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
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
	if err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *taskRepository) checkAffected(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
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
		in, inArgs := inClause("status", filter.Statuses)
		conds = append(conds, in)
		args = append(args, inArgs...)
	}
	if filter.OwnerID != 0 {
		conds = append(conds, "owner_telegram_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.DeadlineBefore != nil {
		conds = append(conds, "deadline < ?")
		args = append(args, formatTime(*filter.DeadlineBefore))
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

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task                       domain.Task
		status                     string
		deadline, created, updated string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&deadline,
		&task.OwnerID,
		&task.Department,
		&created,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	task.Status = domain.Status(status)

	var err error
	if task.Deadline, err = parseTime(deadline); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &task, nil
}
