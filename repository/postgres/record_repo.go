package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository returns a Postgres-backed CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) repository.CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Insert(ctx context.Context, comment *domain.Comment) error {
	if comment == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO comments (task_id, author_telegram_id, text, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		comment.TaskID,
		comment.AuthorID,
		comment.Text,
		comment.CreatedAt,
	).Scan(&comment.ID)
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	const query = `
	SELECT id, task_id, author_telegram_id, text, created_at
	FROM comments
	WHERE task_id = $1
	ORDER BY id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type fileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository returns a Postgres-backed FileRepository.
func NewFileRepository(pool *pgxpool.Pool) repository.FileRepository {
	return &fileRepository{pool: pool}
}

func (r *fileRepository) Insert(ctx context.Context, file *domain.Attachment) error {
	if file == nil || file.FileRef == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO files (task_id, uploader_telegram_id, telegram_file_id, file_name, created_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	RETURNING id
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		file.TaskID,
		file.UploaderID,
		file.FileRef,
		file.FileName,
		file.CreatedAt,
	).Scan(&file.ID)
}

func (r *fileRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	const query = `
	SELECT id, task_id, uploader_telegram_id, telegram_file_id, COALESCE(file_name, ''), created_at
	FROM files
	WHERE task_id = $1
	ORDER BY id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.Attachment
	for rows.Next() {
		var f domain.Attachment
		if err := rows.Scan(&f.ID, &f.TaskID, &f.UploaderID, &f.FileRef, &f.FileName, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns a Postgres-backed AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil || entry.Action == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO audit (task_id, actor_telegram_id, action, details, created_at)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	RETURNING id
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		entry.TaskID,
		entry.ActorID,
		entry.Action,
		entry.Details,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *auditRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.AuditEntry, error) {
	const query = `
	SELECT id, task_id, actor_telegram_id, action, COALESCE(details, ''), created_at
	FROM audit
	WHERE task_id = $1
	ORDER BY id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ActorID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
