package sqlite

import (
	"context"
	"database/sql"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository returns a SQLite-backed CommentRepository.
func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Insert(ctx context.Context, comment *domain.Comment) error {
	if comment == nil {
		return domain.ErrInvalidPayload
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO comments (task_id, author_telegram_id, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.TaskID, comment.AuthorID, comment.Text, formatTime(comment.CreatedAt))
	if err != nil {
		return err
	}
	comment.ID, err = res.LastInsertId()
	return err
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, task_id, author_telegram_id, text, created_at
		FROM comments
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var (
			c       domain.Comment
			created string
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Text, &created); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type fileRepository struct {
	db *sql.DB
}

// NewFileRepository returns a SQLite-backed FileRepository.
func NewFileRepository(db *sql.DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Insert(ctx context.Context, file *domain.Attachment) error {
	if file == nil || file.FileRef == "" {
		return domain.ErrInvalidPayload
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO files (task_id, uploader_telegram_id, telegram_file_id, file_name, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`, file.TaskID, file.UploaderID, file.FileRef, file.FileName, formatTime(file.CreatedAt))
	if err != nil {
		return err
	}
	file.ID, err = res.LastInsertId()
	return err
}

func (r *fileRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, task_id, uploader_telegram_id, telegram_file_id, COALESCE(file_name, ''), created_at
		FROM files
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.Attachment
	for rows.Next() {
		var (
			f       domain.Attachment
			created string
		)
		if err := rows.Scan(&f.ID, &f.TaskID, &f.UploaderID, &f.FileRef, &f.FileName, &created); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository returns a SQLite-backed AuditRepository.
func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil || entry.Action == "" {
		return domain.ErrInvalidPayload
	}
	var taskID sql.NullInt64
	if entry.TaskID != nil {
		taskID = sql.NullInt64{Int64: *entry.TaskID, Valid: true}
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO audit (task_id, actor_telegram_id, action, details, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`, taskID, entry.ActorID, entry.Action, entry.Details, formatTime(entry.CreatedAt))
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

func (r *auditRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.AuditEntry, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, task_id, actor_telegram_id, action, COALESCE(details, ''), created_at
		FROM audit
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			task    sql.NullInt64
			created string
		)
		if err := rows.Scan(&e.ID, &task, &e.ActorID, &e.Action, &e.Details, &created); err != nil {
			return nil, err
		}
		if task.Valid {
			id := task.Int64
			e.TaskID = &id
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
